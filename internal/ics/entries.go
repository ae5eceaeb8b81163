package ics

import (
	"strings"
	"time"
	"unicode/utf8"

	"opscal/internal/model"
)

// ToEntries turns occurrences into meeting entries for the store. Ids combine
// source, UID and instance, so one recurring VEVENT yields one entry per
// instance and re-imports overwrite rather than duplicate.
func ToEntries(occs []Occurrence, loc *time.Location) []model.CalendarEntry {
	if loc == nil {
		loc = time.Local
	}
	out := make([]model.CalendarEntry, 0, len(occs))
	for _, o := range occs {
		start := o.Start
		if !o.AllDay {
			start = start.In(loc)
		}
		e := model.CalendarEntry{
			ID:          o.SourceID + ":" + o.UID + "@" + o.InstanceKey,
			Title:       truncate(strings.TrimSpace(o.Summary), model.MaxTitleLength),
			Description: truncate(o.Description, model.MaxDescriptionLength),
			Date:        time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc),
			Type:        model.TypeMeeting,
			Priority:    model.PriorityMedium,
			Attendees:   o.Attendees,
			Location:    truncate(o.Location, model.MaxLocationLength),
			Source:      o.SourceID,
		}
		if e.Title == "" {
			e.Title = "(no title)"
		}
		if !o.AllDay {
			e.Time = start.Format("15:04")
		}
		out = append(out, e)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
