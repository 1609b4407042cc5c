package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// ErrDuplicateTask is returned when a task name is registered twice.
var ErrDuplicateTask = errors.New("cron: task already registered")

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithTickInterval sets how often the scheduler checks for due entries.
func WithTickInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.tickInterval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

type task struct {
	def   Definition
	sched cronlib.Schedule
	entry Entry
}

// Scheduler runs registered tasks on a tick loop. A task whose previous
// run is still in progress is skipped until it finishes.
type Scheduler struct {
	logger       *slog.Logger
	tickInterval time.Duration
	now          func() time.Time

	mu    sync.Mutex
	tasks map[string]*task

	stopCh  chan struct{}
	started bool
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		logger:       slog.Default(),
		tickInterval: time.Second,
		now:          func() time.Time { return time.Now().UTC() },
		tasks:        make(map[string]*task),
		stopCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates the schedule and adds the task. The first run is the
// schedule's next activation after now.
func (s *Scheduler) Register(def Definition) error {
	if def.Name == "" || def.Run == nil {
		return fmt.Errorf("cron: task needs a name and a run function")
	}
	sched, err := ParseSchedule(def.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", def.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.tasks[def.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, def.Name)
	}
	next := sched.Next(s.now())
	s.tasks[def.Name] = &task{
		def:   def,
		sched: sched,
		entry: Entry{Name: def.Name, Schedule: def.Schedule, NextRunAt: &next},
	}

	s.logger.Info("cron registered",
		slog.String("name", def.Name),
		slog.String("schedule", def.Schedule),
		slog.Time("next_run_at", next),
	)
	return nil
}

// Entries returns a snapshot of every task, sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start launches the tick goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tickLoop(context.WithoutCancel(ctx))
	s.logger.Info("cron scheduler started", slog.Duration("tick_interval", s.tickInterval))
	return nil
}

// Stop signals the scheduler to stop and waits for running tasks.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue runs every task whose NextRunAt has passed and returns how many
// ran. Tasks run synchronously, one after the other.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if t.entry.Running || t.entry.NextRunAt == nil || t.entry.NextRunAt.After(now) {
			continue
		}
		t.entry.Running = true
		due = append(due, t)
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].def.Name < due[j].def.Name })
	for _, t := range due {
		s.fire(ctx, t, now)
	}
	return len(due)
}

func (s *Scheduler) fire(ctx context.Context, t *task, now time.Time) {
	err := s.safeRun(ctx, t)

	s.mu.Lock()
	ranAt := now
	next := t.sched.Next(now)
	t.entry.LastRunAt = &ranAt
	t.entry.NextRunAt = &next
	t.entry.Runs++
	t.entry.Running = false
	t.entry.LastError = ""
	if err != nil {
		t.entry.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("cron task failed",
			slog.String("cron_name", t.def.Name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("cron fired",
		slog.String("cron_name", t.def.Name),
		slog.Time("next_run_at", next),
	)
}

func (s *Scheduler) safeRun(ctx context.Context, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cron: task %s panicked: %v", t.def.Name, r)
		}
	}()
	return t.def.Run(ctx)
}
