package renewal

import (
	"context"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "opscal/internal/log"
	"opscal/internal/model"
)

// Store is the subset of the store the rollover needs.
type Store interface {
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	UpdateRenewalDate(ctx context.Context, id string, date time.Time) error
}

// NextRenewal returns the first renewal on or after today for an active
// subscription whose renewal date has lapsed. It reports false when the
// subscription does not need to move.
//
// Days past the 28th clamp to the end of shorter months (Jan 31 rolls to
// Feb 29 in a leap year), using BYMONTHDAY=28..d with BYSETPOS=-1.
func NextRenewal(sub model.Subscription, today time.Time) (time.Time, bool) {
	if !sub.Active || sub.RenewalDate == nil {
		return time.Time{}, false
	}
	start := *sub.RenewalDate
	loc := start.Location()
	from := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if !start.Before(from) {
		return time.Time{}, false
	}

	opt, ok := ruleFor(sub.BillingCycle, start)
	if !ok {
		return time.Time{}, false
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		appLog.Error("renewal: build rule failed", err, "id", sub.ID, "cycle", sub.BillingCycle)
		return time.Time{}, false
	}
	next := r.After(from, true)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

func ruleFor(cycle model.BillingCycle, start time.Time) (rrule.ROption, bool) {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	opt := rrule.ROption{Dtstart: start, Interval: 1}
	switch cycle {
	case model.CycleMonthly:
		opt.Freq = rrule.MONTHLY
	case model.CycleQuarterly:
		opt.Freq = rrule.MONTHLY
		opt.Interval = 3
	case model.CycleYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = []int{int(start.Month())}
	default:
		return opt, false
	}

	if d := start.Day(); d > 28 {
		for day := 28; day <= d; day++ {
			opt.Bymonthday = append(opt.Bymonthday, day)
		}
		opt.Bysetpos = []int{-1}
	}
	return opt, true
}

// Roll advances every lapsed subscription and returns how many moved. A
// failed update is logged and does not stop the remaining subscriptions.
func Roll(ctx context.Context, store Store, today time.Time) (int, error) {
	subs, err := store.ListSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("renewal roll: %w", err)
	}

	moved := 0
	var firstErr error
	for _, sub := range subs {
		next, ok := NextRenewal(sub, today)
		if !ok {
			continue
		}
		if err := store.UpdateRenewalDate(ctx, sub.ID, next); err != nil {
			appLog.Error("renewal: update failed", err, "id", sub.ID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		appLog.Info("renewal rolled",
			"id", sub.ID,
			"from", sub.RenewalDate.Format(model.DateLayout),
			"to", next.Format(model.DateLayout),
		)
		moved++
	}
	return moved, firstErr
}
