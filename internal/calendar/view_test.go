package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opscal/internal/model"
)

type stubLoader struct {
	src   model.Sources
	err   error
	calls int
}

func (s *stubLoader) Load(_ context.Context) (model.Sources, error) {
	s.calls++
	return s.src, s.err
}

type recordingObserver struct {
	runs []int
	errs []error
}

func (r *recordingObserver) PipelineRun(events []model.CalendarEvent, err error) {
	r.runs = append(r.runs, len(events))
	r.errs = append(r.errs, err)
}

func TestView_CachesUntilInvalidate(t *testing.T) {
	loader := &stubLoader{src: sampleSources()}
	obs := &recordingObserver{}
	v := NewView(loader, ViewConfig{Options: fixedOptions(), CacheTTL: time.Hour, Observer: obs})
	ctx := context.Background()

	first := v.Events(ctx)
	_ = v.Events(ctx)
	assert.Equal(t, 1, loader.calls, "second read served from cache")

	loader.src.Tasks = append(loader.src.Tasks, model.Task{ID: "t3", Title: "New", DueDate: day(2024, 1, 20)})
	NewController(v).Mutated()

	second := v.Events(ctx)
	assert.Equal(t, 2, loader.calls, "invalidate forces a reload")
	assert.Len(t, second, len(first)+1)
	assert.Len(t, obs.runs, 2)
}

func TestView_NegativeTTLDisablesCache(t *testing.T) {
	loader := &stubLoader{src: sampleSources()}
	v := NewView(loader, ViewConfig{Options: fixedOptions(), CacheTTL: -1})
	v.Events(context.Background())
	v.Events(context.Background())
	assert.Equal(t, 2, loader.calls)
}

func TestView_LoadFailureRendersEmptyGrid(t *testing.T) {
	loader := &stubLoader{err: errors.New("db down")}
	obs := &recordingObserver{}
	v := NewView(loader, ViewConfig{Options: fixedOptions(), CacheTTL: time.Hour, Observer: obs})

	mv := v.Month(context.Background(), Month{Year: 2024, Month: time.January}, DefaultFilter())
	assert.Len(t, mv.Cells, GridCells)
	assert.Zero(t, mv.Visible)
	require.Len(t, obs.errs, 1)
	assert.Error(t, obs.errs[0], "observer sees the load error")

	// Failures are not cached.
	v.Events(context.Background())
	assert.Equal(t, 2, loader.calls)
}

func TestView_MonthAndFind(t *testing.T) {
	v := NewView(&stubLoader{src: sampleSources()}, ViewConfig{Options: fixedOptions(), WeekStart: time.Monday})
	ctx := context.Background()

	f := DefaultFilter()
	f.SetCategory(model.CategoryInvoice, false)
	mv := v.Month(ctx, Month{Year: 2024, Month: time.January}, f)

	assert.Equal(t, "2024-01", mv.Month)
	assert.Equal(t, "2024-01-20", mv.Today)
	assert.Equal(t, "2024-01-01", mv.Cells[0].Date, "monday grid")
	assert.Equal(t, 5, mv.Visible, "invoices excluded")
	assert.False(t, mv.Filter.Includes(model.CategoryInvoice), "month view echoes the filter")

	e, ok := v.Find(ctx, "order-o1")
	require.True(t, ok)
	assert.Equal(t, model.CategoryOrder, e.Category)

	_, ok = v.Find(ctx, "order-missing")
	assert.False(t, ok)
}

func TestView_MonthNeighbours(t *testing.T) {
	v := NewView(&stubLoader{}, ViewConfig{Options: fixedOptions()})
	ctx := context.Background()

	mv := v.Month(ctx, Month{Year: 2024, Month: time.January}, DefaultFilter())
	assert.Equal(t, "2023-12", mv.Prev)
	assert.Equal(t, "2024-02", mv.Next)

	mv = v.Month(ctx, Month{Year: 2024, Month: time.December}, DefaultFilter())
	assert.Equal(t, "2024-11", mv.Prev)
	assert.Equal(t, "2025-01", mv.Next)
}
