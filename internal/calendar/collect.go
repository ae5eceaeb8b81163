package calendar

import (
	"time"

	"opscal/internal/model"
)

// Collectors map one source entity type to calendar events. They never fail
// and never limit by date range: missing optional fields get the defaults
// below, and range-limiting happens only in Project.

// CollectTasks emits one deadline per task, dated at its due date or at the
// configured fallback when the task has none.
func CollectTasks(tasks []model.Task, opts Options) []model.CalendarEvent {
	opts = opts.withDefaults()
	out := make([]model.CalendarEvent, 0, len(tasks))
	for _, t := range tasks {
		var date string
		if t.DueDate != nil && !t.DueDate.IsZero() {
			date = calendarDate(*t.DueDate)
		} else {
			d, ok := opts.fallbackDate()
			if !ok {
				continue
			}
			date = d
		}

		priority := t.Priority
		if !priority.Valid() {
			priority = model.PriorityMedium
		}

		out = append(out, model.CalendarEvent{
			ID:          model.EventID(model.CategoryTask, t.ID),
			Title:       t.Title,
			Date:        date,
			Time:        opts.Times.Task,
			Type:        model.TypeDeadline,
			Category:    model.CategoryTask,
			Priority:    priority,
			Description: t.Description,
			OrderID:     t.OrderID,
		})
	}
	return out
}

// CollectOrders emits one deadline per dated order. Order deadlines are always
// high priority.
func CollectOrders(orders []model.Order, opts Options) []model.CalendarEvent {
	opts = opts.withDefaults()
	out := make([]model.CalendarEvent, 0, len(orders))
	for _, o := range orders {
		if o.DueDate == nil || o.DueDate.IsZero() {
			continue
		}
		ev := model.CalendarEvent{
			ID:       model.EventID(model.CategoryOrder, o.ID),
			Title:    o.Title,
			Date:     calendarDate(*o.DueDate),
			Time:     opts.Times.Order,
			Type:     model.TypeDeadline,
			Category: model.CategoryOrder,
			Priority: model.PriorityHigh,
		}
		if o.ClientName != "" {
			ev.Description = "Client: " + o.ClientName
		}
		out = append(out, ev)
	}
	return out
}

// CollectSubscriptions emits a renewal reminder for every active subscription
// that has a renewal date.
func CollectSubscriptions(subs []model.Subscription, opts Options) []model.CalendarEvent {
	opts = opts.withDefaults()
	out := make([]model.CalendarEvent, 0, len(subs))
	for _, s := range subs {
		if !s.Active || s.RenewalDate == nil || s.RenewalDate.IsZero() {
			continue
		}
		ev := model.CalendarEvent{
			ID:       model.EventID(model.CategorySubscription, s.ID),
			Title:    "Renewal: " + s.Name,
			Date:     calendarDate(*s.RenewalDate),
			Time:     opts.Times.Subscription,
			Type:     model.TypeReminder,
			Category: model.CategorySubscription,
			Priority: model.PriorityMedium,
		}
		if s.BillingCycle != "" {
			ev.Description = "Billed " + string(s.BillingCycle)
		}
		out = append(out, ev)
	}
	return out
}

// CollectInvoices emits a deadline per dated invoice; overdue invoices are high
// priority, everything else medium.
func CollectInvoices(invoices []model.Invoice, opts Options) []model.CalendarEvent {
	opts = opts.withDefaults()
	out := make([]model.CalendarEvent, 0, len(invoices))
	for _, inv := range invoices {
		if inv.DueDate == nil || inv.DueDate.IsZero() {
			continue
		}
		priority := model.PriorityMedium
		if inv.Status == model.InvoiceOverdue {
			priority = model.PriorityHigh
		}
		ev := model.CalendarEvent{
			ID:       model.EventID(model.CategoryInvoice, inv.ID),
			Title:    "Invoice " + inv.Number + " due",
			Date:     calendarDate(*inv.DueDate),
			Time:     opts.Times.Invoice,
			Type:     model.TypeDeadline,
			Category: model.CategoryInvoice,
			Priority: priority,
		}
		if inv.ClientName != "" {
			ev.Description = "Client: " + inv.ClientName
		}
		out = append(out, ev)
	}
	return out
}

// CollectCalendarEntries passes stored meetings and reminders through. Meetings
// are categorised as "meeting", every other type as "calendar".
func CollectCalendarEntries(entries []model.CalendarEntry, opts Options) []model.CalendarEvent {
	opts = opts.withDefaults()
	out := make([]model.CalendarEvent, 0, len(entries))
	for _, e := range entries {
		var date string
		if e.Date.IsZero() {
			d, ok := opts.fallbackDate()
			if !ok {
				continue
			}
			date = d
		} else {
			date = calendarDate(e.Date)
		}

		typ := e.Type
		if !typ.Valid() {
			typ = model.TypeMeeting
		}
		category := model.CategoryCalendar
		if typ == model.TypeMeeting {
			category = model.CategoryMeeting
		}
		priority := e.Priority
		if !priority.Valid() {
			priority = model.PriorityMedium
		}
		clock := e.Time
		if clock == "" {
			clock = opts.Times.Calendar
		}

		var attendees []string
		if len(e.Attendees) > 0 {
			attendees = append([]string(nil), e.Attendees...)
		}

		out = append(out, model.CalendarEvent{
			ID:          model.EventID(category, e.ID),
			Title:       e.Title,
			Date:        date,
			Time:        clock,
			Type:        typ,
			Category:    category,
			Priority:    priority,
			Description: e.Description,
			Attendees:   attendees,
			Location:    e.Location,
		})
	}
	return out
}

// calendarDate reads the year, month and day as stored. Source dates are
// calendar days, not instants, so they are never shifted into the display zone.
func calendarDate(t time.Time) string {
	return model.FormatDate(t, nil)
}
