package calendar

import (
	"errors"
	"fmt"

	"opscal/internal/model"
)

var ErrUnknownCreationKind = errors.New("unknown creation kind")

// IntentKind tags what the host should do next.
type IntentKind string

const (
	IntentNone               IntentKind = "none"
	IntentOpenDayDetail      IntentKind = "open_day_detail"
	IntentOpenCreationChoice IntentKind = "open_creation_choice"
	IntentOpenCreateForm     IntentKind = "open_create_form"
	IntentNavigate           IntentKind = "navigate"
	IntentRefresh            IntentKind = "refresh"
)

// CreationKind is one of the creation paths offered for an empty day.
type CreationKind string

const (
	CreateMeeting CreationKind = "meeting"
	CreateTask    CreationKind = "task"
)

// NavTarget is where a navigate intent points.
type NavTarget string

const (
	NavOrder NavTarget = "order"
	NavTasks NavTarget = "tasks"
)

// Intent is emitted toward the host's routing/modal layer. Only the fields
// relevant to Kind are set.
type Intent struct {
	Kind     IntentKind            `json:"kind"`
	Date     string                `json:"date,omitempty"`
	Events   []model.CalendarEvent `json:"events,omitempty"`
	Choices  []CreationKind        `json:"choices,omitempty"`
	Form     CreationKind          `json:"form,omitempty"`
	Target   NavTarget             `json:"target,omitempty"`
	TargetID string                `json:"target_id,omitempty"`
}

// Invalidator drops derived state so the next read re-runs the pipeline.
type Invalidator interface {
	Invalidate()
}

// Controller turns grid interactions into intents. It keeps no state of its
// own beyond the pipeline it invalidates after mutations.
type Controller struct {
	pipeline Invalidator
}

// NewController binds a controller to the pipeline it refreshes. p may be nil
// when the caller re-derives on every read anyway.
func NewController(p Invalidator) *Controller {
	return &Controller{pipeline: p}
}

// ClickDay opens the day detail when the clicked day has events, otherwise the
// creation choice. A date that is not on the grid counts as an empty day.
func (c *Controller) ClickDay(cells []model.DayCell, date string) Intent {
	cell, ok := CellFor(cells, date)
	if ok && len(cell.Events) > 0 {
		events := append([]model.CalendarEvent(nil), cell.Events...)
		return Intent{Kind: IntentOpenDayDetail, Date: date, Events: events}
	}
	return Intent{
		Kind:    IntentOpenCreationChoice,
		Date:    date,
		Choices: []CreationKind{CreateMeeting, CreateTask},
	}
}

// ChooseCreation opens the creation form for kind, pre-filled with date.
func (c *Controller) ChooseCreation(date string, kind CreationKind) (Intent, error) {
	switch kind {
	case CreateMeeting, CreateTask:
		return Intent{Kind: IntentOpenCreateForm, Date: date, Form: kind}, nil
	}
	return Intent{}, fmt.Errorf("%w: %q", ErrUnknownCreationKind, kind)
}

// SelectEvent resolves where clicking an event in the day detail leads. Only
// task events navigate: to their order when linked, else to the task list.
// Other categories have no destination yet and yield IntentNone.
func (c *Controller) SelectEvent(e model.CalendarEvent) Intent {
	if e.Category != model.CategoryTask {
		return Intent{Kind: IntentNone}
	}
	if e.OrderID != "" {
		return Intent{Kind: IntentNavigate, Target: NavOrder, TargetID: e.OrderID}
	}
	return Intent{Kind: IntentNavigate, Target: NavTasks}
}

// Mutated must be called after any successful create or edit. It invalidates
// the pipeline and tells the host to re-derive everything.
func (c *Controller) Mutated() Intent {
	if c.pipeline != nil {
		c.pipeline.Invalidate()
	}
	return Intent{Kind: IntentRefresh}
}
