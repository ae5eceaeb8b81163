package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscal/internal/model"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func TestController_ClickDay(t *testing.T) {
	events := []model.CalendarEvent{{ID: "task-1", Date: "2024-01-15", Category: model.CategoryTask}}
	cells := Project(events, Month{Year: 2024, Month: time.January}, GridOptions{})
	c := NewController(nil)

	got := c.ClickDay(cells, "2024-01-15")
	assert.Equal(t, IntentOpenDayDetail, got.Kind)
	assert.Equal(t, "2024-01-15", got.Date)
	assert.Len(t, got.Events, 1)

	got = c.ClickDay(cells, "2024-01-16")
	assert.Equal(t, IntentOpenCreationChoice, got.Kind)
	assert.Equal(t, []CreationKind{CreateMeeting, CreateTask}, got.Choices)

	got = c.ClickDay(cells, "2030-01-01")
	assert.Equal(t, IntentOpenCreationChoice, got.Kind, "off-grid day")
}

func TestController_ChooseCreation(t *testing.T) {
	c := NewController(nil)
	got, err := c.ChooseCreation("2024-01-16", CreateTask)
	require.NoError(t, err)
	assert.Equal(t, IntentOpenCreateForm, got.Kind)
	assert.Equal(t, CreateTask, got.Form)
	assert.Equal(t, "2024-01-16", got.Date)

	_, err = c.ChooseCreation("2024-01-16", "invoice")
	assert.ErrorIs(t, err, ErrUnknownCreationKind)
}

func TestController_SelectEvent(t *testing.T) {
	c := NewController(nil)
	tests := []struct {
		name   string
		event  model.CalendarEvent
		kind   IntentKind
		target NavTarget
		id     string
	}{
		{"task linked to order", model.CalendarEvent{Category: model.CategoryTask, OrderID: "o1"}, IntentNavigate, NavOrder, "o1"},
		{"standalone task", model.CalendarEvent{Category: model.CategoryTask}, IntentNavigate, NavTasks, ""},
		{"order event", model.CalendarEvent{Category: model.CategoryOrder}, IntentNone, "", ""},
		{"meeting", model.CalendarEvent{Category: model.CategoryMeeting}, IntentNone, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.SelectEvent(tc.event)
			assert.Equal(t, tc.kind, got.Kind)
			assert.Equal(t, tc.target, got.Target)
			assert.Equal(t, tc.id, got.TargetID)
		})
	}
}

func TestController_MutatedInvalidates(t *testing.T) {
	inv := &countingInvalidator{}
	c := NewController(inv)
	assert.Equal(t, IntentRefresh, c.Mutated().Kind)
	assert.Equal(t, 1, inv.calls)
}
