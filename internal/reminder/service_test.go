package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	logx "planner/pkg/logx"
)

type recordSink struct {
	mu  sync.Mutex
	got []Reminder
	at  []time.Time
	ch  chan struct{}
}

func newRecordSink() *recordSink { return &recordSink{ch: make(chan struct{}, 64)} }

func (r *recordSink) Deliver(_ context.Context, rem Reminder) {
	r.mu.Lock()
	r.got = append(r.got, rem)
	r.at = append(r.at, time.Now())
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recordSink) wait(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-r.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for %d deliveries (got %d)", n, i)
		}
	}
}

func (r *recordSink) snapshot() ([]Reminder, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reminder(nil), r.got...), append([]time.Time(nil), r.at...)
}

func startService(t *testing.T, sink Sink) *Service {
	t.Helper()
	s := New(sink, logx.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
		defer stop()
		s.Stop(stopCtx)
	})
	return s
}

func TestPastInstantFiresPromptly(t *testing.T) {
	t.Parallel()
	sink := newRecordSink()
	s := startService(t, sink)

	start := time.Now()
	s.Schedule(start.Add(-time.Hour), Notification{TaskID: "past", Title: "Task Reminder"})
	sink.wait(t, 1, time.Second)

	got, at := sink.snapshot()
	if len(got) != 1 || got[0].TaskID != "past" {
		t.Fatalf("unexpected deliveries %+v", got)
	}
	if d := at[0].Sub(start); d > 500*time.Millisecond {
		t.Fatalf("past reminder fired after %v", d)
	}
}

func TestFutureInstantFiresOnceNotEarly(t *testing.T) {
	t.Parallel()
	sink := newRecordSink()
	s := startService(t, sink)

	at := time.Now().Add(80 * time.Millisecond)
	h := s.Schedule(at, Notification{TaskID: "future"})
	if h.ID == 0 || !h.At.Equal(at) {
		t.Fatalf("unexpected handle %+v", h)
	}
	sink.wait(t, 1, 2*time.Second)

	// Give a duplicate firing a chance to show up.
	time.Sleep(100 * time.Millisecond)
	got, firedAt := sink.snapshot()
	if len(got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(got))
	}
	if firedAt[0].Before(at) {
		t.Fatalf("fired at %v, before %v", firedAt[0], at)
	}
	if n := len(s.Pending()); n != 0 {
		t.Fatalf("pending = %d after firing", n)
	}
}

func TestFiresInInstantOrder(t *testing.T) {
	t.Parallel()
	sink := newRecordSink()
	s := New(sink, logx.Nop(), nil)

	base := time.Now().Add(50 * time.Millisecond)
	// Scheduled out of order and before Start.
	s.Schedule(base.Add(40*time.Millisecond), Notification{TaskID: "c"})
	s.Schedule(base, Notification{TaskID: "a"})
	s.Schedule(base.Add(20*time.Millisecond), Notification{TaskID: "b"})
	s.Schedule(base, Notification{TaskID: "a2"})

	pending := s.Pending()
	wantPending := []string{"a", "a2", "b", "c"}
	for i, id := range wantPending {
		if pending[i].TaskID != id {
			t.Fatalf("Pending()[%d] = %s, want %s", i, pending[i].TaskID, id)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(context.Background())

	sink.wait(t, 4, 2*time.Second)
	got, _ := sink.snapshot()
	for i, id := range wantPending {
		if got[i].TaskID != id {
			t.Fatalf("delivery %d = %s, want %s", i, got[i].TaskID, id)
		}
	}
}

func TestEarlierReminderPreemptsSleepingLoop(t *testing.T) {
	t.Parallel()
	sink := newRecordSink()
	s := startService(t, sink)

	s.Schedule(time.Now().Add(time.Hour), Notification{TaskID: "later"})
	s.Schedule(time.Now().Add(20*time.Millisecond), Notification{TaskID: "soon"})
	sink.wait(t, 1, time.Second)

	got, _ := sink.snapshot()
	if got[0].TaskID != "soon" {
		t.Fatalf("first delivery = %s, want soon", got[0].TaskID)
	}
	if p := s.Pending(); len(p) != 1 || p[0].TaskID != "later" {
		t.Fatalf("unexpected pending %+v", p)
	}
}

func TestStopDropsPendingReminders(t *testing.T) {
	t.Parallel()
	sink := newRecordSink()
	s := New(sink, logx.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Schedule(time.Now().Add(80*time.Millisecond), Notification{TaskID: "dropped"})
	s.Stop(context.Background())
	if n := len(s.Pending()); n != 0 {
		t.Fatalf("pending = %d after Stop, want 0", n)
	}

	// A restarted loop must not fire what was queued before Stop.
	s.Start(ctx)
	defer s.Stop(context.Background())
	select {
	case <-sink.ch:
		got, _ := sink.snapshot()
		t.Fatalf("dropped reminder fired after restart: %+v", got)
	case <-time.After(250 * time.Millisecond):
	}
}
