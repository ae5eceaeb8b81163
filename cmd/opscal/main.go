package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"opscal/internal/calendar"
	"opscal/internal/config"
	"opscal/internal/ics"
	appLog "opscal/internal/log"
	"opscal/internal/metrics"
	"opscal/internal/renewal"
	"opscal/internal/scheduler"
	"opscal/internal/store"
	"opscal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("opscal starting", "version", "0.1.0")

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone; using UTC", err, "timezone", conf.Timezone)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"database", conf.Database,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"refresh", conf.RefreshCron,
		"renewal_cron", conf.RenewalCron,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, loc, flags.once); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLog.Error("opscal stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("opscal exiting")
}

func run(ctx context.Context, conf *config.Config, loc *time.Location, once bool) error {
	db, err := store.Open(ctx, conf.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	st := store.New(db, loc)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	view := calendar.NewView(st, calendar.ViewConfig{
		Options: calendar.Options{
			Location:        loc,
			TaskDueFallback: calendar.Fallback(conf.TaskDueFallback),
			Times: calendar.DefaultTimes{
				Task:         conf.DefaultTimes.Task,
				Order:        conf.DefaultTimes.Order,
				Subscription: conf.DefaultTimes.Subscription,
				Invoice:      conf.DefaultTimes.Invoice,
				Calendar:     conf.DefaultTimes.Calendar,
			},
		},
		WeekStart: conf.Weekday(),
		CacheTTL:  conf.CacheTTL(),
		Observer:  m,
	})

	sched := scheduler.New(loc, view, m)
	if err := registerJobs(sched, conf, st, loc); err != nil {
		return err
	}

	if once {
		return sched.RunAll(ctx)
	}

	sched.Start(ctx)
	defer sched.Stop()

	srv := web.NewServer(conf, web.Deps{
		View:       view,
		Controller: calendar.NewController(view),
		Store:      st,
		Metrics:    m,
	})
	return srv.ListenAndServe(ctx)
}

func registerJobs(sched *scheduler.Scheduler, conf *config.Config, st *store.Store, loc *time.Location) error {
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, c := range conf.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	if len(sources) > 0 {
		syncer := ics.NewSyncer(ics.NewFetcher(conf.ICSCacheDir, nil), st, ics.SyncConfig{
			Location:     loc,
			BackfillDays: conf.ICSBackfillDays,
			HorizonDays:  conf.ICSHorizonDays,
		})
		err := sched.Add("ics_sync", conf.RefreshSpec(), func(ctx context.Context) error {
			_, err := syncer.Sync(ctx, sources)
			return err
		})
		if err != nil {
			return err
		}
	}

	return sched.Add("renewal_roll", conf.RenewalSpec(), func(ctx context.Context) error {
		_, err := renewal.Roll(ctx, st, time.Now().In(loc))
		return err
	})
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./opscal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run ICS sync and renewal rollover once and exit")

	flag.Parse()

	return cfg
}
