package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscal/internal/model"
)

func fixedOptions() Options {
	now := time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)
	return Options{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	}
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCollectTasks_DueDateAndFallback(t *testing.T) {
	tasks := []model.Task{
		{ID: "1", Title: "Logo", DueDate: day(2024, 1, 15), Priority: model.PriorityHigh, OrderID: "o9"},
		{ID: "2", Title: "Undated"},
	}

	got := CollectTasks(tasks, fixedOptions())
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "task-1", first.ID)
	assert.Equal(t, "2024-01-15", first.Date)
	assert.Equal(t, model.TypeDeadline, first.Type)
	assert.Equal(t, model.CategoryTask, first.Category)
	assert.Equal(t, model.PriorityHigh, first.Priority)
	assert.Equal(t, "o9", first.OrderID)
	assert.Equal(t, "09:00", first.Time)

	// A task without a due date is pinned to today rather than omitted.
	assert.Equal(t, "2024-01-20", got[1].Date)
	assert.Equal(t, model.PriorityMedium, got[1].Priority)
}

func TestCollectTasks_SkipFallback(t *testing.T) {
	opts := fixedOptions()
	opts.TaskDueFallback = FallbackSkip

	got := CollectTasks([]model.Task{{ID: "2", Title: "Undated"}}, opts)
	assert.Empty(t, got)
}

func TestCollectors_DatesIgnoreDisplayZone(t *testing.T) {
	opts := fixedOptions()
	opts.Location = time.FixedZone("EST", -5*3600)

	src := model.Sources{
		Tasks:         []model.Task{{ID: "t", Title: "Proofs", DueDate: day(2024, 1, 15)}},
		Orders:        []model.Order{{ID: "o", Title: "Site", DueDate: day(2024, 1, 15)}},
		Subscriptions: []model.Subscription{{ID: "s", Name: "Figma", Active: true, RenewalDate: day(2024, 1, 15)}},
		Invoices:      []model.Invoice{{ID: "i", Number: "7", DueDate: day(2024, 1, 15)}},
		CalendarEntries: []model.CalendarEntry{
			{ID: "m", Title: "Kickoff", Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.FixedZone("KST", 9*3600))},
		},
	}

	events := Normalize(src, opts)
	require.Len(t, events, 5)
	for _, e := range events {
		assert.Equal(t, "2024-01-15", e.Date, "event %s shifted by the display zone", e.ID)
	}
}

func TestCollectOrders_ForcedHighPriority(t *testing.T) {
	orders := []model.Order{
		{ID: "a", Title: "Website", ClientName: "Acme", DueDate: day(2024, 1, 15)},
		{ID: "b", Title: "No deadline"},
	}
	got := CollectOrders(orders, fixedOptions())
	require.Len(t, got, 1, "undated order skipped")

	e := got[0]
	assert.Equal(t, "order-a", e.ID)
	assert.Equal(t, model.PriorityHigh, e.Priority)
	assert.Equal(t, model.TypeDeadline, e.Type)
	assert.Equal(t, model.CategoryOrder, e.Category)
	assert.Equal(t, "Client: Acme", e.Description)
}

func TestCollectSubscriptions_ActiveOnly(t *testing.T) {
	subs := []model.Subscription{
		{ID: "s1", Name: "Figma", Active: true, RenewalDate: day(2024, 2, 1), BillingCycle: model.CycleMonthly},
		{ID: "s2", Name: "Paused", Active: false, RenewalDate: day(2024, 2, 1)},
		{ID: "s3", Name: "No date", Active: true},
	}
	got := CollectSubscriptions(subs, fixedOptions())
	require.Len(t, got, 1)

	e := got[0]
	assert.Equal(t, "subscription-s1", e.ID)
	assert.Equal(t, model.TypeReminder, e.Type)
	assert.Equal(t, model.PriorityMedium, e.Priority)
	assert.Equal(t, "Renewal: Figma", e.Title)
}

func TestCollectInvoices_OverdueIsHigh(t *testing.T) {
	invoices := []model.Invoice{
		{ID: "i1", Number: "2024-001", DueDate: day(2024, 1, 10), Status: model.InvoiceOverdue},
		{ID: "i2", Number: "2024-002", DueDate: day(2024, 1, 25), Status: model.InvoiceSent},
		{ID: "i3", Number: "2024-003", Status: model.InvoiceDraft},
	}
	got := CollectInvoices(invoices, fixedOptions())
	require.Len(t, got, 2)

	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.Equal(t, model.PriorityMedium, got[1].Priority)
	assert.Equal(t, "12:00", got[0].Time)
}

func TestCollectCalendarEntries_CategorySplit(t *testing.T) {
	entries := []model.CalendarEntry{
		{ID: "m1", Title: "Kickoff", Date: *day(2024, 1, 15), Time: "14:00", Type: model.TypeMeeting,
			Attendees: []string{"ana@example.com"}, Location: "Zoom"},
		{ID: "r1", Title: "Call bank", Date: *day(2024, 1, 16), Type: model.TypeReminder, Priority: model.PriorityLow},
	}
	got := CollectCalendarEntries(entries, fixedOptions())
	require.Len(t, got, 2)

	assert.Equal(t, "meeting-m1", got[0].ID)
	assert.Equal(t, model.CategoryMeeting, got[0].Category)
	assert.Equal(t, "14:00", got[0].Time)
	assert.Equal(t, []string{"ana@example.com"}, got[0].Attendees)
	assert.Equal(t, "Zoom", got[0].Location)

	assert.Equal(t, "calendar-r1", got[1].ID)
	assert.Equal(t, model.CategoryCalendar, got[1].Category)
	assert.Equal(t, model.PriorityLow, got[1].Priority)
	assert.Equal(t, "09:00", got[1].Time, "entry without time uses the default")
}

func TestCollectors_EmptyInput(t *testing.T) {
	opts := fixedOptions()

	tasks := CollectTasks(nil, opts)
	require.NotNil(t, tasks)
	assert.Empty(t, tasks)

	events := Normalize(model.Sources{}, opts)
	require.NotNil(t, events)
	assert.Empty(t, events)
}

func TestOptions_CustomTimes(t *testing.T) {
	opts := fixedOptions()
	opts.Times = DefaultTimes{Order: "18:30"}

	orders := CollectOrders([]model.Order{{ID: "a", Title: "x", DueDate: day(2024, 1, 1)}}, opts)
	require.Len(t, orders, 1)
	assert.Equal(t, "18:30", orders[0].Time)

	tasks := CollectTasks([]model.Task{{ID: "t", Title: "x", DueDate: day(2024, 1, 1)}}, opts)
	require.Len(t, tasks, 1)
	assert.Equal(t, "09:00", tasks[0].Time, "unset override keeps the default")
}
