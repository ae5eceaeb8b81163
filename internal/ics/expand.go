package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "opscal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone occurrences are converted to. Nil means time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the expansion window (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means 5000.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a (possibly recurring) VEVENT.
type Occurrence struct {
	SourceID string
	UID      string
	// InstanceKey distinguishes instances of the same UID.
	InstanceKey string

	Summary     string
	Description string
	Location    string
	Attendees   []string

	AllDay bool
	Start  time.Time
	End    time.Time
}

// ExpandResult lists occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands single and RRULE-based events inside the window,
// applying EXDATEs and RECURRENCE-ID overrides. Output is sorted by start then
// UID so repeated syncs store entries in a stable order.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	var uids []string
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	for _, uid := range uids {
		truncated := false
		for _, ev := range bases[uid] {
			occ, hitCap := expandEvent(ev, overrides[uid], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		a, b := result.Occurrences[i], result.Occurrences[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.UID < b.UID
	})
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
			return nil, false
		}
		start, end, base := applyOverride(ev, overrides, ev.Start, ev.End)
		return []Occurrence{makeOccurrence(base, start, end, cfg.DisplayLocation)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	starts := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	dur := ev.End.Sub(ev.Start)
	for _, s := range starts {
		var e time.Time
		if ev.AllDay {
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			e = s.AddDate(0, 0, 1)
		} else {
			e = s.Add(dur)
		}
		start, end, base := applyOverride(ev, overrides, s, e)
		out = append(out, makeOccurrence(base, start, end, cfg.DisplayLocation))
	}
	return out, hitCap
}

// applyOverride swaps in the override whose RECURRENCE-ID equals start.
func applyOverride(ev ParsedEvent, overrides []ParsedEvent, start, end time.Time) (time.Time, time.Time, ParsedEvent) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov.Start, ov.End, ov
		}
	}
	return start, end, ev
}

func makeOccurrence(ev ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	if ev.AllDay {
		// All-day dates are floating; keep the calendar day, not the instant.
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	} else {
		start = start.In(loc)
		end = end.In(loc)
	}
	return Occurrence{
		SourceID:    ev.Source.ID,
		UID:         ev.UID,
		InstanceKey: start.Format("20060102T150405"),
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Attendees:   ev.Attendees,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
