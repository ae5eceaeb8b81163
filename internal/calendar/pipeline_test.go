package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscal/internal/model"
)

func sampleSources() model.Sources {
	return model.Sources{
		Tasks: []model.Task{
			{ID: "t1", Title: "Logo", DueDate: day(2024, 1, 15), Priority: model.PriorityHigh},
			{ID: "t2", Title: "Wireframes", DueDate: day(2024, 1, 3), Priority: model.PriorityLow},
		},
		Orders: []model.Order{
			{ID: "o1", Title: "Website", DueDate: day(2024, 1, 15)},
		},
		Subscriptions: []model.Subscription{
			{ID: "s1", Name: "Figma", Active: true, RenewalDate: day(2024, 1, 15)},
		},
		Invoices: []model.Invoice{
			{ID: "i1", Number: "7", DueDate: day(2024, 1, 15), Status: model.InvoiceOverdue},
		},
		CalendarEntries: []model.CalendarEntry{
			{ID: "c1", Title: "Kickoff", Date: *day(2024, 1, 15), Type: model.TypeMeeting},
		},
	}
}

func TestNormalize_CollectorOrder(t *testing.T) {
	got := Normalize(sampleSources(), fixedOptions())

	want := []string{"task-t1", "task-t2", "order-o1", "meeting-c1", "subscription-s1", "invoice-i1"}
	assert.Equal(t, want, eventIDs(got))
}

func TestPipeline_Idempotent(t *testing.T) {
	run := func() []byte {
		events := Normalize(sampleSources(), fixedOptions())
		cells := Project(Filter(events, DefaultFilter()), Month{Year: 2024, Month: time.January}, GridOptions{})
		b, err := json.Marshal(cells)
		require.NoError(t, err)
		return b
	}
	assert.JSONEq(t, string(run()), string(run()))
}

// A task and an order due the same day both land in that day's cell, and the
// order is high priority regardless of its source data.
func TestPipeline_TaskAndOrderSameDay(t *testing.T) {
	src := model.Sources{
		Tasks:  []model.Task{{ID: "t1", Title: "Logo", DueDate: day(2024, 1, 15), Priority: model.PriorityHigh}},
		Orders: []model.Order{{ID: "o1", Title: "Website", DueDate: day(2024, 1, 15)}},
	}
	f := FilterState{Categories: map[model.Category]bool{model.CategoryTask: true, model.CategoryOrder: true}}

	cells := Project(Filter(Normalize(src, fixedOptions()), f), Month{Year: 2024, Month: time.January}, GridOptions{})
	cell, ok := CellFor(cells, "2024-01-15")
	require.True(t, ok, "2024-01-15 not on the grid")
	require.Len(t, cell.Events, 2)

	task, order := cell.Events[0], cell.Events[1]
	assert.Equal(t, model.CategoryTask, task.Category)
	assert.Equal(t, model.TypeDeadline, task.Type)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.CategoryOrder, order.Category)
	assert.Equal(t, model.TypeDeadline, order.Type)
	assert.Equal(t, model.PriorityHigh, order.Priority)
}

// Every filtered event inside the grid window appears in exactly one cell.
func TestPipeline_NoEventLostOrDuplicated(t *testing.T) {
	filtered := Filter(Normalize(sampleSources(), fixedOptions()), DefaultFilter())
	cells := Project(filtered, Month{Year: 2024, Month: time.January}, GridOptions{})

	seen := make(map[string]int)
	for _, c := range cells {
		for _, e := range c.Events {
			seen[e.ID]++
		}
	}
	require.Len(t, seen, len(filtered))
	for _, e := range filtered {
		assert.Equal(t, 1, seen[e.ID], "event %s", e.ID)
	}
}

func TestPipeline_EmptySourcesGiveEmptyGrid(t *testing.T) {
	cells := Project(Filter(Normalize(model.Sources{}, fixedOptions()), DefaultFilter()), Month{Year: 2024, Month: time.March}, GridOptions{})
	require.Len(t, cells, GridCells)
	for _, c := range cells {
		assert.Empty(t, c.Events, "cell %s", c.Date)
	}
}
