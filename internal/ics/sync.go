package ics

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "opscal/internal/log"
	"opscal/internal/model"
)

// EntryStore receives imported entries, one source at a time.
type EntryStore interface {
	ReplaceImportedEntries(ctx context.Context, source string, entries []model.CalendarEntry) error
}

// SyncConfig bounds which occurrences are imported.
type SyncConfig struct {
	Location     *time.Location
	BackfillDays int
	HorizonDays  int
	Now          func() time.Time
}

// SyncResult reports how many entries each source imported.
type SyncResult struct {
	Imported map[string]int
	Failed   []string
}

// Syncer imports remote ICS feeds into the store as meeting entries.
type Syncer struct {
	fetcher *Fetcher
	store   EntryStore
	cfg     SyncConfig
}

func NewSyncer(fetcher *Fetcher, store EntryStore, cfg SyncConfig) *Syncer {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 366
	}
	return &Syncer{fetcher: fetcher, store: store, cfg: cfg}
}

// Sync fetches, parses and expands every source, then replaces that source's
// entries. A failing source keeps its previous import; the others still sync.
func (s *Syncer) Sync(ctx context.Context, sources []Source) (SyncResult, error) {
	res := SyncResult{Imported: make(map[string]int, len(sources))}
	now := s.cfg.Now().In(s.cfg.Location)
	expand := ExpandConfig{
		DisplayLocation: s.cfg.Location,
		RangeStart:      now.AddDate(0, 0, -s.cfg.BackfillDays),
		RangeEnd:        now.AddDate(0, 0, s.cfg.HorizonDays),
	}

	var errs []error
	for _, src := range sources {
		n, err := s.syncOne(ctx, src, expand)
		if err != nil {
			appLog.Error("ics sync failed", err, "id", src.ID, "url", redactURL(src.URL))
			res.Failed = append(res.Failed, src.ID)
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			continue
		}
		res.Imported[src.ID] = n
	}
	appLog.Info("ics sync completed", "sources", len(sources), "failed", len(res.Failed))
	return res, errors.Join(errs...)
}

func (s *Syncer) syncOne(ctx context.Context, src Source, expand ExpandConfig) (int, error) {
	fetched, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return 0, err
	}
	parsed, err := ParseICS(src, fetched.Body)
	if err != nil {
		return 0, err
	}
	expanded, err := ExpandOccurrences(parsed, expand)
	if err != nil {
		return 0, err
	}
	entries := ToEntries(expanded.Occurrences, s.cfg.Location)
	if err := s.store.ReplaceImportedEntries(ctx, src.ID, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
