package model

import (
	"fmt"
	"time"
)

// Max length constants.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxLocationLength    = 200
)

// Task is a unit of work, optionally linked to an order.
type Task struct {
	ID          string
	Title       string
	Description string
	// DueDate is a calendar day; only its year, month and day are used.
	DueDate     *time.Time
	Priority    Priority
	OrderID     string
	Status      string
}

// Validate checks the task's invariants.
// PRE: none
// POST: returns nil if valid, an ErrInvalid-wrapped error otherwise
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalid)
	}
	if err := validateTitle("task", t.Title); err != nil {
		return err
	}
	if len(t.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: task description cannot exceed %d characters", ErrInvalid, MaxDescriptionLength)
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return fmt.Errorf("%w: task priority must be low, medium or high", ErrInvalid)
	}
	return nil
}

// Order is a client order with an optional delivery deadline.
type Order struct {
	ID         string
	Title      string
	ClientName string
	DueDate    *time.Time
	Status     string
}

func (o *Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalid)
	}
	return validateTitle("order", o.Title)
}

type BillingCycle string

const (
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

// Subscription is a recurring plan; RenewalDate is the next billing date.
type Subscription struct {
	ID           string
	Name         string
	Active       bool
	RenewalDate  *time.Time
	BillingCycle BillingCycle
}

func (s *Subscription) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: subscription id is required", ErrInvalid)
	}
	if err := validateTitle("subscription", s.Name); err != nil {
		return err
	}
	switch s.BillingCycle {
	case "", CycleMonthly, CycleQuarterly, CycleYearly:
		return nil
	}
	return fmt.Errorf("%w: unknown billing cycle %q", ErrInvalid, s.BillingCycle)
}

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID         string
	Number     string
	ClientName string
	DueDate    *time.Time
	Status     InvoiceStatus
	// Amount is in minor currency units.
	Amount int64
}

func (i *Invoice) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("%w: invoice id is required", ErrInvalid)
	}
	if i.Number == "" {
		return fmt.Errorf("%w: invoice number is required", ErrInvalid)
	}
	if i.Amount < 0 {
		return fmt.Errorf("%w: invoice amount cannot be negative", ErrInvalid)
	}
	return nil
}

// SourceLocal marks calendar entries created directly by the user.
const SourceLocal = "local"

// CalendarEntry is a meeting or reminder stored as-is, either created by the
// user or imported from an ICS subscription.
type CalendarEntry struct {
	ID          string
	Title       string
	Description string
	Date        time.Time
	Time        string // HH:MM, empty when all-day or unknown
	Type        Type
	Priority    Priority
	Attendees   []string
	Location    string
	Source      string
}

func (e *CalendarEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: calendar entry id is required", ErrInvalid)
	}
	if err := validateTitle("calendar entry", e.Title); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: calendar entry date is required", ErrInvalid)
	}
	if e.Type != "" && !e.Type.Valid() {
		return fmt.Errorf("%w: calendar entry type must be meeting, deadline or reminder", ErrInvalid)
	}
	if e.Priority != "" && !e.Priority.Valid() {
		return fmt.Errorf("%w: calendar entry priority must be low, medium or high", ErrInvalid)
	}
	if e.Time != "" {
		if _, err := time.Parse("15:04", e.Time); err != nil {
			return fmt.Errorf("%w: calendar entry time must be HH:MM", ErrInvalid)
		}
	}
	if len(e.Location) > MaxLocationLength {
		return fmt.Errorf("%w: calendar entry location cannot exceed %d characters", ErrInvalid, MaxLocationLength)
	}
	return nil
}

// Sources bundles the five collections the calendar is derived from.
type Sources struct {
	Tasks           []Task
	Orders          []Order
	Subscriptions   []Subscription
	Invoices        []Invoice
	CalendarEntries []CalendarEntry
}

func validateTitle(kind, title string) error {
	if title == "" {
		return fmt.Errorf("%w: %s title cannot be empty", ErrInvalid, kind)
	}
	if len(title) > MaxTitleLength {
		return fmt.Errorf("%w: %s title cannot exceed %d characters", ErrInvalid, kind, MaxTitleLength)
	}
	return nil
}
