package reminder

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"

	"planner/internal/eventbus"
	rtsup "planner/internal/runtime/supervisor"
	logx "planner/pkg/logx"
)

type Service struct {
	mu    sync.Mutex
	queue queue
	seq   uint64

	sink Sink
	log  logx.Logger
	bus  eventbus.Bus

	// wake nudges the loop when the heap head may have changed.
	wake chan struct{}
	sup  *rtsup.Supervisor
}

func New(sink Sink, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &Service{
		sink: sink,
		log:  log,
		bus:  bus,
		wake: make(chan struct{}, 1),
	}
}

// Schedule arms a one-shot delivery of n at or after at. It never blocks and
// never rejects: a past instant fires as soon as the loop runs.
func (s *Service) Schedule(at time.Time, n Notification) Handle {
	s.mu.Lock()
	s.seq++
	h := Handle{ID: s.seq, At: at}
	heap.Push(&s.queue, Reminder{Handle: h, Notification: n})
	pending := len(s.queue)
	s.mu.Unlock()

	s.nudge()
	s.log.Debug("reminder scheduled",
		logx.Uint64("id", h.ID),
		logx.String("task_id", n.TaskID),
		logx.Time("at", at),
		logx.Int("pending", pending),
	)
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderScheduled, Data: ScheduledEvent{ID: h.ID, TaskID: n.TaskID, At: at}})
	return h
}

// Pending returns the not-yet-fired reminders in firing order.
func (s *Service) Pending() []Reminder {
	s.mu.Lock()
	out := make([]Reminder, len(s.queue))
	copy(out, s.queue)
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return queue(out).Less(i, j) })
	return out
}

// Start runs the loop. It is idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sup != nil {
		return
	}
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))
	s.sup.GoRestart("reminder.loop", s.run,
		rtsup.WithRestartBackoff(100*time.Millisecond, 5*time.Second),
		rtsup.WithPublishFirstError(true),
	)
	s.log.Info("service started", logx.Int("pending", len(s.queue)))
}

// Stop halts the loop and drops every reminder not yet fired. A later Start
// begins with an empty queue.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.mu.Unlock()
	if sup == nil {
		return
	}
	if err := sup.Stop(ctx); err != nil {
		s.log.Warn("stop incomplete", logx.Err(err))
	}

	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()
	if dropped > 0 {
		s.log.Info("pending reminders dropped", logx.Int("count", dropped))
	}
	s.log.Info("service stopped")
}

func (s *Service) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		due, next, hasNext := s.popDue(time.Now())
		for _, r := range due {
			s.fire(ctx, r)
		}

		var tick <-chan time.Time
		if hasNext {
			timer.Reset(time.Until(next))
			tick = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-tick:
		}
		timer.Stop()
	}
}

// popDue removes every reminder due at now and reports the next instant, if any.
func (s *Service) popDue(now time.Time) (due []Reminder, next time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 && !s.queue[0].At.After(now) {
		due = append(due, heap.Pop(&s.queue).(Reminder))
	}
	if len(s.queue) > 0 {
		return due, s.queue[0].At, true
	}
	return due, time.Time{}, false
}

func (s *Service) fire(ctx context.Context, r Reminder) {
	firedAt := time.Now()
	late := firedAt.Sub(r.At)
	s.log.Info("reminder fired",
		logx.Uint64("id", r.ID),
		logx.String("task_id", r.TaskID),
		logx.Time("at", r.At),
		logx.Duration("lateness", late),
	)
	if s.sink != nil {
		s.sink.Deliver(ctx, r)
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.ReminderFired, Time: firedAt, Data: FiredEvent{
		ID: r.ID, TaskID: r.TaskID, At: r.At, FiredAt: firedAt, Lateness: late,
	}})
}
