package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "opscal/internal/log"
)

// ParsedEvent is one VEVENT before recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID string

	Summary     string
	Description string
	Location    string
	Attendees   []string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, set on overrides
	IsOverride bool
}

// ParseICS parses one ICS payload. Broken VEVENTs are logged and skipped; only
// an unreadable calendar fails the whole payload.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, err := parseVEvent(src, comp)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		if addr := strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:"); addr != "" {
			out.Attendees = append(out.Attendees, addr)
		}
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	} else {
		out.End = start
	}

	// VALUE=DATE, or a DTSTART without a time part, marks an all-day event.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseICSTime handles bare DATE, local DATE-TIME and UTC DATE-TIME values as
// they appear in EXDATE and RECURRENCE-ID.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
