package calendar

import (
	"fmt"
	"time"

	"opscal/internal/model"
)

// GridCells is the fixed size of a month grid: 6 weeks of 7 days.
const GridCells = 42

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month t falls in, in t's own location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns midnight UTC on the 1st. UTC keeps day arithmetic free of DST.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}

func (m Month) Next() Month {
	return MonthOf(m.First().AddDate(0, 1, 0))
}

func (m Month) Prev() Month {
	return MonthOf(m.First().AddDate(0, -1, 0))
}

// Contains reports whether the YYYY-MM-DD date falls in the month.
func (m Month) Contains(date string) bool {
	d, err := model.ParseDate(date, time.UTC)
	if err != nil {
		return false
	}
	return d.Year() == m.Year && d.Month() == m.Month
}

// GridOptions controls grid layout.
type GridOptions struct {
	// WeekStart is the weekday of the first column. The zero value is Sunday.
	WeekStart time.Weekday
	// Today, when set (YYYY-MM-DD), marks the matching cell.
	Today string
}

// Project lays the events out on a fixed 42-cell grid for month m: the tail of
// the previous month up to the first week start, every day of m, then the
// head of the next month. Each cell holds the events whose date equals the
// cell's date, in input order.
func Project(events []model.CalendarEvent, m Month, opts GridOptions) []model.DayCell {
	byDate := make(map[string][]model.CalendarEvent)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e)
	}

	first := m.First()
	lead := (int(first.Weekday()) - int(opts.WeekStart) + 7) % 7
	start := first.AddDate(0, 0, -lead)

	cells := make([]model.DayCell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		date := d.Format(model.DateLayout)

		dayEvents := byDate[date]
		if dayEvents == nil {
			dayEvents = []model.CalendarEvent{}
		}

		cells = append(cells, model.DayCell{
			Date:           date,
			Day:            d.Day(),
			IsCurrentMonth: m.Contains(date),
			IsToday:        opts.Today != "" && date == opts.Today,
			Events:         dayEvents,
		})
	}
	return cells
}

// CellFor finds the cell for date, or false when the date is not on the grid.
func CellFor(cells []model.DayCell, date string) (model.DayCell, bool) {
	for _, c := range cells {
		if c.Date == date {
			return c, true
		}
	}
	return model.DayCell{}, false
}
