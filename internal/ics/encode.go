package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"opscal/internal/model"
)

// ProductID identifies feeds produced by Encode.
const ProductID = "-//opscal//calendar feed//EN"

// Encode renders events as an ICS feed with one all-day VEVENT each. Event ids
// are stable, so calendar clients update rather than duplicate on refresh.
func Encode(events []model.CalendarEvent, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("opscal")

	for _, e := range events {
		day, err := model.ParseDate(e.Date, time.UTC)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", e.ID, err)
		}

		ve := cal.AddEvent(e.ID + "@opscal")
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(e.Title)
		ve.SetAllDayStartAt(day)
		ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		for _, a := range e.Attendees {
			ve.AddAttendee("mailto:" + a)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, string(e.Category))
		ve.SetProperty(ical.ComponentPropertyPriority, icsPriority(e.Priority))
	}

	return cal.Serialize(), nil
}

// icsPriority maps to RFC 5545 PRIORITY: 1 highest, 5 normal, 9 lowest.
func icsPriority(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "1"
	case model.PriorityLow:
		return "9"
	default:
		return "5"
	}
}
