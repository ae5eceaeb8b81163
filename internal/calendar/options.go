package calendar

import (
	"time"

	"opscal/internal/model"
)

// Fallback decides what happens to an entity that should be dated but is not.
type Fallback string

const (
	// FallbackToday pins undated entities to the current date.
	FallbackToday Fallback = "today"
	// FallbackSkip leaves undated entities off the calendar.
	FallbackSkip Fallback = "skip"
)

// DefaultTimes holds the display time-of-day used for each source when the
// source record carries none.
type DefaultTimes struct {
	Task         string
	Order        string
	Subscription string
	Invoice      string
	Calendar     string
}

func defaultTimes() DefaultTimes {
	return DefaultTimes{
		Task:         "09:00",
		Order:        "17:00",
		Subscription: "09:00",
		Invoice:      "12:00",
		Calendar:     "09:00",
	}
}

// Options controls how source records are projected into events.
type Options struct {
	// Location is the display timezone "today" is computed in. Source dates
	// keep their own year, month and day. Nil means time.Local.
	Location *time.Location
	// Now returns the current instant. Nil means time.Now.
	Now func() time.Time
	// TaskDueFallback applies to tasks without a due date and to calendar
	// entries with a zero date. Empty means FallbackToday.
	TaskDueFallback Fallback
	// Times overrides per-source display times; empty fields keep defaults.
	Times DefaultTimes
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.TaskDueFallback != FallbackSkip {
		o.TaskDueFallback = FallbackToday
	}
	d := defaultTimes()
	if o.Times.Task == "" {
		o.Times.Task = d.Task
	}
	if o.Times.Order == "" {
		o.Times.Order = d.Order
	}
	if o.Times.Subscription == "" {
		o.Times.Subscription = d.Subscription
	}
	if o.Times.Invoice == "" {
		o.Times.Invoice = d.Invoice
	}
	if o.Times.Calendar == "" {
		o.Times.Calendar = d.Calendar
	}
	return o
}

// Today is the current calendar date in the display timezone.
func (o Options) Today() string {
	o = o.withDefaults()
	return model.FormatDate(o.Now(), o.Location)
}

// fallbackDate returns the date an undated record is pinned to, or false when
// the record should be left out.
func (o Options) fallbackDate() (string, bool) {
	if o.TaskDueFallback == FallbackSkip {
		return "", false
	}
	return model.FormatDate(o.Now(), o.Location), true
}
