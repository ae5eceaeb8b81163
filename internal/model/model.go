package model

import (
	"errors"
	"time"
)

// DateLayout is the ISO calendar-date layout used for every CalendarEvent date.
const DateLayout = "2006-01-02"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid record")

// Category is the provenance tag of a calendar event.
type Category string

const (
	CategoryTask         Category = "task"
	CategoryOrder        Category = "order"
	CategoryInvoice      Category = "invoice"
	CategorySubscription Category = "subscription"
	CategoryCalendar     Category = "calendar"
	CategoryMeeting      Category = "meeting"
)

// AllCategories returns every category in declaration order.
func AllCategories() []Category {
	return []Category{
		CategoryTask,
		CategoryOrder,
		CategoryInvoice,
		CategorySubscription,
		CategoryCalendar,
		CategoryMeeting,
	}
}

func (c Category) Valid() bool {
	_, ok := ParseCategory(string(c))
	return ok
}

func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Type is the coarse semantic class of an event, independent of Category.
type Type string

const (
	TypeMeeting  Type = "meeting"
	TypeDeadline Type = "deadline"
	TypeReminder Type = "reminder"
)

func (t Type) Valid() bool {
	_, ok := ParseType(string(t))
	return ok
}

func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeMeeting, TypeDeadline, TypeReminder:
		return Type(s), true
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	_, ok := ParsePriority(string(p))
	return ok
}

func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	}
	return "", false
}

// CalendarEvent is the uniform shape every source entity is projected into.
// It is never stored; it is recomputed from the source collections.
type CalendarEvent struct {
	// ID is "<category>-<entity id>", stable across aggregation passes.
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Date        string   `json:"date"` // YYYY-MM-DD
	Time        string   `json:"time"` // display only
	Type        Type     `json:"type"`
	Category    Category `json:"category"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	Location    string   `json:"location,omitempty"`
	OrderID     string   `json:"order_id,omitempty"`
}

// EventID derives the deterministic event id for an entity.
func EventID(c Category, entityID string) string {
	return string(c) + "-" + entityID
}

// DayCell is one of the 42 cells of a month grid.
type DayCell struct {
	Date           string          `json:"date"`
	Day            int             `json:"day"`
	IsCurrentMonth bool            `json:"is_current_month"`
	IsToday        bool            `json:"is_today"`
	Events         []CalendarEvent `json:"events"`
}

// FormatDate renders t as a calendar date in loc. A nil loc keeps t's zone.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string in loc (UTC when nil).
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}
