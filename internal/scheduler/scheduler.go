package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "opscal/internal/log"
)

// Invalidator is told after every job so the next read re-aggregates.
type Invalidator interface {
	Invalidate()
}

// Recorder observes job outcomes (metrics).
type Recorder interface {
	JobRun(job string, err error)
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

// Scheduler runs background jobs on cron specs in the configured zone.
// Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron *cron.Cron
	inv  Invalidator
	rec  Recorder

	mu   sync.Mutex
	jobs []job
	ctx  context.Context
}

func New(loc *time.Location, inv Invalidator, rec Recorder) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		inv: inv,
		rec: rec,
		ctx: context.Background(),
	}
}

// Add registers a job. An empty spec registers the job for RunAll only.
func (s *Scheduler) Add(name, spec string, run func(ctx context.Context) error) error {
	j := job{name: name, spec: spec, run: run}
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.runJob(s.jobContext(), j) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, j)
	s.mu.Unlock()
	appLog.Info("job registered", "job", name, "spec", spec)
	return nil
}

// RunAll runs every registered job once, in registration order.
func (s *Scheduler) RunAll(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	var firstErr error
	for _, j := range jobs {
		if err := s.runJob(ctx, j); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Start begins cron dispatch; jobs get ctx until Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts dispatch and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) runJob(ctx context.Context, j job) error {
	start := time.Now()
	err := j.run(ctx)
	if err != nil {
		appLog.Error("job failed", err, "job", j.name, "elapsed", time.Since(start).String())
	} else {
		appLog.Info("job completed", "job", j.name, "elapsed", time.Since(start).String())
	}
	if s.rec != nil {
		s.rec.JobRun(j.name, err)
	}
	if s.inv != nil {
		s.inv.Invalidate()
	}
	return err
}

// cronLogger routes cron's own messages into the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
