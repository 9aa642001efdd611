package planner

import (
	"context"
	"errors"
	"time"

	"planner/internal/eventbus"
	"planner/internal/notifier"
	"planner/internal/reminder"
	"planner/internal/storage"
	"planner/internal/task"
	"planner/internal/transport"
	logx "planner/pkg/logx"
)

// Scheduler arms one-shot reminders.
type Scheduler interface {
	Schedule(at time.Time, n reminder.Notification) reminder.Handle
}

// Notifier queues outbound reminder messages.
type Notifier interface {
	NotifyFunc(ctx context.Context, m notifier.Message, done func(err error)) error
}

// Usager is implemented by adapters that have their own help text.
type Usager interface {
	Usage() string
}

type Deps struct {
	Registry  *task.Registry
	Scheduler Scheduler
	Notifier  Notifier
	// UI is used for synchronous replies (confirmation, errors, listings).
	UI transport.Adapter
	// Store is optional.
	Store    storage.Store
	Bus      eventbus.Bus
	Log      logx.Logger
	Location *time.Location
	Now      func() time.Time
}

// TaskAddedEvent is published on eventbus.TaskAdded.
type TaskAddedEvent struct {
	Task   task.Task        `json:"task"`
	Target transport.Target `json:"target"`
}

type Service struct {
	reg   *task.Registry
	sched Scheduler
	notif Notifier
	ui    transport.Adapter
	store storage.Store
	bus   eventbus.Bus
	log   logx.Logger
	loc   *time.Location
	now   func() time.Time
}

func New(d Deps) *Service {
	s := &Service{
		reg:   d.Registry,
		sched: d.Scheduler,
		notif: d.Notifier,
		ui:    d.UI,
		store: d.Store,
		bus:   d.Bus,
		log:   d.Log,
		loc:   d.Location,
		now:   d.Now,
	}
	if s.reg == nil {
		s.reg = task.NewRegistry()
	}
	if s.bus == nil {
		s.bus = eventbus.Nop{}
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) Registry() *task.Registry { return s.reg }
func (s *Service) Location() *time.Location { return s.loc }

// Submit validates d, registers the task and arms its reminder. Validation
// failures are shown to the user and returned; nothing is registered then.
func (s *Service) Submit(ctx context.Context, to transport.Target, d task.Draft) (task.Task, error) {
	t, err := task.NewFromDraft(d, s.loc, s.now())
	if err != nil {
		title, body, ok := validationMessage(err)
		if !ok {
			title, body = TitleError, BodyInternal
		}
		s.log.Info("draft rejected", logx.Err(err), logx.String("channel", to.Channel))
		s.display(ctx, to, title, body)
		return task.Task{}, err
	}

	s.reg.Add(t)
	h := s.sched.Schedule(t.Time, reminder.Notification{
		TaskID:   t.ID,
		TaskName: t.Name,
		Title:    TitleTaskReminder,
		Body:     ReminderBody(t),
		Target:   to,
	})
	s.log.Info("task added",
		logx.String("task_id", t.ID),
		logx.String("name", t.Name),
		logx.Time("at", t.Time),
		logx.Uint64("reminder", h.ID),
	)
	s.audit(ctx, storage.AuditEntry{
		At:       t.CreatedAt,
		Action:   storage.ActionTaskAdded,
		TaskID:   t.ID,
		TaskName: t.Name,
		TaskTime: t.Time,
		Channel:  to.Channel,
		ChatID:   to.ChatID,
	})
	s.bus.Publish(eventbus.Event{Type: eventbus.TaskAdded, Data: TaskAddedEvent{Task: t, Target: to}})

	s.display(ctx, to, TitleTaskAdded, BodyTaskAdded)
	return t, nil
}

// ShowTasks displays every registered task in insertion order.
func (s *Service) ShowTasks(ctx context.Context, to transport.Target) {
	s.display(ctx, to, TitleScheduledTasks, FormatTaskList(s.reg.ListAll(), s.loc))
}

// ShowHelp displays the adapter's usage text.
func (s *Service) ShowHelp(ctx context.Context, to transport.Target) {
	body := defaultHelp
	if u, ok := s.ui.(Usager); ok {
		body = u.Usage()
	}
	s.display(ctx, to, TitleHelp, body)
}

// Dispatch consumes UI updates until ctx is done, the channel closes or a
// quit update arrives.
func (s *Service) Dispatch(ctx context.Context, updates <-chan transport.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			switch u.Kind {
			case transport.UpdateSubmit:
				if u.Draft == nil {
					s.log.Warn("submit without draft", logx.String("channel", u.Target.Channel))
					continue
				}
				_, _ = s.Submit(ctx, u.Target, *u.Draft)
			case transport.UpdateList:
				s.ShowTasks(ctx, u.Target)
			case transport.UpdateHelp:
				s.ShowHelp(ctx, u.Target)
			case transport.UpdateQuit:
				s.log.Info("quit requested", logx.String("channel", u.Target.Channel))
				return nil
			default:
				s.log.Debug("ignoring update", logx.String("kind", string(u.Kind)))
			}
		}
	}
}

// directTimeout bounds a reminder displayed without the notifier.
const directTimeout = 10 * time.Second

// Deliver hands a fired reminder to the notifier. It runs on the reminder
// loop and never waits for the UI, except when the notifier cannot take the
// message (disabled, stopped or full): the reminder is then displayed
// directly so a fired reminder is never silently lost.
func (s *Service) Deliver(ctx context.Context, r reminder.Reminder) {
	entry := storage.AuditEntry{
		Action:   storage.ActionReminderFired,
		TaskID:   r.TaskID,
		TaskName: r.TaskName,
		TaskTime: r.At,
		Channel:  r.Target.Channel,
		ChatID:   r.Target.ChatID,
	}
	finish := func(err error) {
		e := entry
		e.At = s.now()
		if err != nil {
			e.Action = storage.ActionReminderFailed
			e.Error = err.Error()
		}
		// The delivery context may already be gone during shutdown.
		actx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.audit(actx, e)
	}

	msg := notifier.Message{Target: r.Target, Title: r.Title, Body: r.Body, Kind: "reminder", AtMostOnce: true}
	err := s.notif.NotifyFunc(ctx, msg, finish)
	switch {
	case err == nil:
		return
	case errors.Is(err, notifier.ErrDisabled), errors.Is(err, notifier.ErrStopped), errors.Is(err, notifier.ErrQueueFull):
		s.log.Warn("notifier unavailable; displaying reminder directly", logx.Err(err), logx.String("task_id", r.TaskID))
		finish(s.displayDirect(ctx, r))
	default:
		s.log.Error("reminder not queued", logx.Err(err), logx.String("task_id", r.TaskID))
		finish(err)
	}
}

func (s *Service) displayDirect(ctx context.Context, r reminder.Reminder) error {
	if s.ui == nil {
		return errors.New("no ui to display reminder")
	}
	dctx, cancel := context.WithTimeout(ctx, directTimeout)
	defer cancel()
	if err := s.ui.DisplayMessage(dctx, r.Target, r.Title, r.Body); err != nil {
		s.log.Error("reminder display failed", logx.Err(err), logx.String("task_id", r.TaskID))
		return err
	}
	return nil
}

func (s *Service) display(ctx context.Context, to transport.Target, title, body string) {
	if s.ui == nil {
		return
	}
	if err := s.ui.DisplayMessage(ctx, to, title, body); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("display failed", logx.Err(err), logx.String("title", title))
	}
}

func (s *Service) audit(ctx context.Context, e storage.AuditEntry) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Warn("audit append failed", logx.Err(err), logx.String("action", e.Action))
	}
}
