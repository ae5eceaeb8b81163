package calendar

import (
	"opscal/internal/model"
)

// Normalize merges every collector's output into one sequence. The collector
// order is fixed (tasks, orders, calendar entries, subscriptions, invoices) so
// same-day events always render in the same order. No deduplication happens
// here; ids are unique by construction of the collectors.
func Normalize(src model.Sources, opts Options) []model.CalendarEvent {
	opts = opts.withDefaults()

	parts := [][]model.CalendarEvent{
		CollectTasks(src.Tasks, opts),
		CollectOrders(src.Orders, opts),
		CollectCalendarEntries(src.CalendarEntries, opts),
		CollectSubscriptions(src.Subscriptions, opts),
		CollectInvoices(src.Invoices, opts),
	}

	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]model.CalendarEvent, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
