package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscal/internal/model"
)

func TestProject_AlwaysFortyTwoCells(t *testing.T) {
	for _, ws := range []time.Weekday{time.Sunday, time.Monday} {
		for year := 2023; year <= 2025; year++ {
			for mo := time.January; mo <= time.December; mo++ {
				m := Month{Year: year, Month: mo}
				cells := Project(nil, m, GridOptions{WeekStart: ws})
				require.Len(t, cells, GridCells, "%s ws=%s", m, ws)

				current := 0
				for _, c := range cells {
					if c.IsCurrentMonth {
						current++
					}
				}
				require.Equal(t, m.Days(), current, "%s ws=%s: current-month cells", m, ws)

				first := m.First()
				lead := (int(first.Weekday()) - int(ws) + 7) % 7
				require.Equal(t, first.Format(model.DateLayout), cells[lead].Date, "%s ws=%s: 1st of month", m, ws)

				d, err := model.ParseDate(cells[0].Date, time.UTC)
				require.NoError(t, err)
				require.Equal(t, ws, d.Weekday(), "%s: first column", m)
			}
		}
	}
}

func TestProject_LeadingAndTrailingDays(t *testing.T) {
	// January 2024 starts on a Monday.
	cells := Project(nil, Month{Year: 2024, Month: time.January}, GridOptions{WeekStart: time.Sunday})
	assert.Equal(t, "2023-12-31", cells[0].Date)
	assert.False(t, cells[0].IsCurrentMonth)
	assert.Equal(t, "2024-01-01", cells[1].Date)
	assert.True(t, cells[1].IsCurrentMonth)

	last := cells[GridCells-1]
	assert.Equal(t, "2024-02-10", last.Date)
	assert.False(t, last.IsCurrentMonth)

	// With a Monday week start the month opens the grid with no lead.
	cells = Project(nil, Month{Year: 2024, Month: time.January}, GridOptions{WeekStart: time.Monday})
	assert.Equal(t, "2024-01-01", cells[0].Date)
}

func TestProject_BucketsEventsAndMarksToday(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", Date: "2024-02-29"},
		{ID: "b", Date: "2024-03-01"}, // trailing day, still on the grid
		{ID: "c", Date: "2024-02-29"},
		{ID: "d", Date: "2025-01-01"}, // off grid
	}
	cells := Project(events, Month{Year: 2024, Month: time.February}, GridOptions{Today: "2024-02-29"})

	leap, ok := CellFor(cells, "2024-02-29")
	require.True(t, ok, "leap day missing from February 2024 grid")
	assert.Equal(t, []string{"a", "c"}, eventIDs(leap.Events))
	assert.True(t, leap.IsToday)

	next, ok := CellFor(cells, "2024-03-01")
	require.True(t, ok)
	assert.False(t, next.IsCurrentMonth)
	assert.Len(t, next.Events, 1)

	for _, c := range cells {
		assert.NotNil(t, c.Events, "cell %s has nil events", c.Date)
	}
}

func TestMonth_Navigation(t *testing.T) {
	m, err := ParseMonth("2024-12")
	require.NoError(t, err)
	assert.Equal(t, "2025-01", m.Next().String())
	assert.Equal(t, "2023-12", Month{Year: 2024, Month: time.January}.Prev().String())
	assert.Equal(t, 31, m.Days())

	assert.True(t, m.Contains("2024-12-31"))
	assert.False(t, m.Contains("2025-01-01"))
	assert.False(t, m.Contains("garbage"))

	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
}
