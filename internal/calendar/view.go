package calendar

import (
	"context"
	"sync"
	"time"

	appLog "opscal/internal/log"
	"opscal/internal/model"
)

const defaultCacheTTL = 30 * time.Second

// SourceLoader supplies the five source collections, typically from storage.
type SourceLoader interface {
	Load(ctx context.Context) (model.Sources, error)
}

// Observer is notified after every pipeline run.
type Observer interface {
	PipelineRun(events []model.CalendarEvent, err error)
}

// ViewConfig configures a View.
type ViewConfig struct {
	Options   Options
	WeekStart time.Weekday
	// CacheTTL bounds how long normalized events are reused without an
	// explicit Invalidate. Zero means 30s; negative disables caching.
	CacheTTL time.Duration
	Observer Observer
}

// MonthView is one rendered month: the grid plus the filter that produced it.
// Prev and Next name the neighbouring months for host navigation.
type MonthView struct {
	Month   string          `json:"month"`
	Prev    string          `json:"prev"`
	Next    string          `json:"next"`
	Today   string          `json:"today"`
	Filter  FilterState     `json:"filter"`
	Visible int             `json:"visible"`
	Cells   []model.DayCell `json:"cells"`
}

// View runs load → normalize → filter → project and caches the normalized
// events until Invalidate. Each View is owned by its caller; there is no
// package-level state.
type View struct {
	loader SourceLoader
	cfg    ViewConfig

	mu       sync.RWMutex
	cached   []model.CalendarEvent
	cachedAt time.Time
	valid    bool
	gen      uint64
}

func NewView(loader SourceLoader, cfg ViewConfig) *View {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	cfg.Options = cfg.Options.withDefaults()
	return &View{loader: loader, cfg: cfg}
}

// Invalidate drops cached events; the next read re-runs the whole pipeline.
func (v *View) Invalidate() {
	v.mu.Lock()
	v.cached = nil
	v.valid = false
	v.gen++
	v.mu.Unlock()
}

// Options returns the collector options in effect.
func (v *View) Options() Options {
	return v.cfg.Options
}

// Events returns the normalized, unfiltered event sequence. A load failure is
// logged and treated as empty sources. The returned slice must not be modified.
func (v *View) Events(ctx context.Context) []model.CalendarEvent {
	v.mu.RLock()
	if v.valid && v.cfg.CacheTTL > 0 && time.Since(v.cachedAt) < v.cfg.CacheTTL {
		events := v.cached
		v.mu.RUnlock()
		return events
	}
	gen := v.gen
	v.mu.RUnlock()

	src, err := v.loader.Load(ctx)
	if err != nil {
		appLog.Error("calendar: source load failed; rendering empty calendar", err)
		src = model.Sources{}
	}
	events := Normalize(src, v.cfg.Options)

	if v.cfg.Observer != nil {
		v.cfg.Observer.PipelineRun(events, err)
	}
	appLog.Debug("calendar: pipeline run", "events", len(events))

	// Failed loads are not cached so the next read retries. A concurrent
	// Invalidate during the load also wins over this result.
	if err == nil {
		v.mu.Lock()
		if v.gen == gen {
			v.cached = events
			v.cachedAt = time.Now()
			v.valid = true
		}
		v.mu.Unlock()
	}
	return events
}

// Month renders month m under filter f.
func (v *View) Month(ctx context.Context, m Month, f FilterState) MonthView {
	visible := Filter(v.Events(ctx), f)
	today := v.cfg.Options.Today()
	return MonthView{
		Month:   m.String(),
		Prev:    m.Prev().String(),
		Next:    m.Next().String(),
		Today:   today,
		Filter:  f.Clone(),
		Visible: len(visible),
		Cells:   Project(visible, m, GridOptions{WeekStart: v.cfg.WeekStart, Today: today}),
	}
}

// Find looks an event up by id among the unfiltered events.
func (v *View) Find(ctx context.Context, id string) (model.CalendarEvent, bool) {
	for _, e := range v.Events(ctx) {
		if e.ID == id {
			return e, true
		}
	}
	return model.CalendarEvent{}, false
}
