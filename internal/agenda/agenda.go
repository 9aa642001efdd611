// Package agenda sends a cron-driven digest of the day's remaining tasks.
//
// It only reads the registry. Reminders stay one-shot; the digest is a
// separate message, not a re-arm.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"planner/internal/eventbus"
	"planner/internal/notifier"
	"planner/internal/planner"
	"planner/internal/task"
	"planner/internal/transport"
	logx "planner/pkg/logx"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Enabled  bool
	Schedule string
	// Location drives both the cron schedule and what "today" means.
	Location *time.Location
	Targets  []transport.Target
}

// Lister is the read side of the task registry.
type Lister interface {
	ListAll() []task.Task
}

type Notifier interface {
	Notify(ctx context.Context, m notifier.Message) error
}

// SentEvent is published on eventbus.AgendaSent.
type SentEvent struct {
	Day     string `json:"day"`
	Tasks   int    `json:"tasks"`
	Targets int    `json:"targets"`
}

type Service struct {
	mu  sync.Mutex
	cfg Config

	tasks Lister
	notif Notifier
	log   logx.Logger
	bus   eventbus.Bus
	now   func() time.Time

	parser cron.Parser
	c      *cron.Cron
	ctx    context.Context
}

func New(cfg Config, tasks Lister, notif Notifier, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{
		cfg:    cfg,
		tasks:  tasks,
		notif:  notif,
		log:    log,
		bus:    bus,
		now:    time.Now,
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start arms the cron entry when enabled. It is idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	s.ctx = ctx
	return s.startLocked()
}

func (s *Service) startLocked() error {
	if !s.cfg.Enabled {
		return nil
	}
	loc := s.location()
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{s.log}),
		cron.WithChain(cron.Recover(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(strings.TrimSpace(s.cfg.Schedule), s.fire); err != nil {
		return fmt.Errorf("agenda schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.c = c
	s.log.Info("service started", logx.String("schedule", s.cfg.Schedule), logx.String("tz", loc.String()), logx.Int("targets", len(s.cfg.Targets)))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		s.log.Info("service stopped")
	case <-ctx.Done():
		s.log.Warn("stop timed out; digest still running", logx.Err(ctx.Err()))
	}
}

// Apply swaps the config and re-arms the cron entry if running.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	s.cfg = cfg
	prev := s.c
	s.c = nil
	started := s.ctx != nil
	s.mu.Unlock()

	// A running digest takes s.mu, so wait for it unlocked.
	if prev != nil {
		<-prev.Stop().Done()
	}
	if !started {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return nil
	}
	return s.startLocked()
}

func (s *Service) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Warn("digest incomplete", logx.Err(err))
	}
}

// RunOnce sends today's digest to every target and returns how many tasks
// it listed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	targets := append([]transport.Target(nil), s.cfg.Targets...)
	loc := s.location()
	s.mu.Unlock()

	now := s.now().In(loc)
	today := Select(s.tasks.ListAll(), now)
	body := planner.FormatTaskList(today, loc)

	var errs []error
	for _, to := range targets {
		err := s.notif.Notify(ctx, notifier.Message{Target: to, Title: planner.TitleTodaysTasks, Body: body, Kind: "agenda"})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%d: %w", to.Channel, to.ChatID, err))
		}
	}
	day := now.Format("2006-01-02")
	s.log.Info("digest sent", logx.String("day", day), logx.Int("tasks", len(today)), logx.Int("targets", len(targets)))
	s.bus.Publish(eventbus.Event{Type: eventbus.AgendaSent, Data: SentEvent{Day: day, Tasks: len(today), Targets: len(targets)}})
	return len(today), errors.Join(errs...)
}

func (s *Service) location() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.Local
}

// Select returns the tasks on now's calendar day (in now's location) that
// are not yet past, earliest first. Ties keep insertion order.
func Select(tasks []task.Task, now time.Time) []task.Task {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Time.Before(now) || !t.Time.Before(end) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// cronLogger routes robfig/cron's logging through logx.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
