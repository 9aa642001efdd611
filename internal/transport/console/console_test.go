package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"planner/internal/transport"
	logx "planner/pkg/logx"
)

func collect(t *testing.T, input string, n int) ([]transport.Update, string) {
	t.Helper()
	var out bytes.Buffer
	a := New(strings.NewReader(input), &out, logx.Nop())
	updates := make(chan transport.Update, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx, updates); err != nil {
		t.Fatalf("start: %v", err)
	}

	got := make([]transport.Update, 0, n)
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case up := <-updates:
			got = append(got, up)
		case <-deadline:
			t.Fatalf("got %d updates, want %d", len(got), n)
		}
	}
	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	a.outMu.Lock()
	defer a.outMu.Unlock()
	return got, out.String()
}

func TestSessionCommands(t *testing.T) {
	t.Parallel()
	input := "add\nDentist\nbring card\n2026-05-06\n14\n30\nlist\nhelp\nbogus\nquit\n"
	got, out := collect(t, input, 5)

	want := []transport.UpdateKind{
		transport.UpdateSubmit, transport.UpdateList, transport.UpdateHelp, transport.UpdateHelp, transport.UpdateQuit,
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Fatalf("update %d = %s, want %s", i, got[i].Kind, k)
		}
		if got[i].Target != Target {
			t.Fatalf("update %d target = %+v", i, got[i].Target)
		}
	}

	d := got[0].Draft
	if d == nil || d.Name != "Dentist" || d.Description != "bring card" || d.Hour != "14" || d.Minute != "30" {
		t.Fatalf("draft = %+v", d)
	}
	if d.Date == nil || d.Date.String() != "2026-05-06" {
		t.Fatalf("date = %+v", d.Date)
	}
	for _, prompt := range []string{"Task name: ", "Description: ", "Date (YYYY-MM-DD): ", "Hour (0-23): ", "Minute (0-59): "} {
		if !strings.Contains(out, prompt) {
			t.Fatalf("output missing prompt %q:\n%s", prompt, out)
		}
	}
}

func TestSessionBadDateIsAbsent(t *testing.T) {
	t.Parallel()
	got, out := collect(t, "add\nx\n\nnext tuesday\n9\n0\n", 2)
	if got[0].Kind != transport.UpdateSubmit || got[0].Draft.Date != nil {
		t.Fatalf("update = %+v", got[0])
	}
	if !strings.Contains(out, "not a YYYY-MM-DD date") {
		t.Fatalf("no date hint in output:\n%s", out)
	}
	// End of input becomes a quit.
	if got[1].Kind != transport.UpdateQuit {
		t.Fatalf("last update = %s, want quit", got[1].Kind)
	}
}

func TestDisplayMessage(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	a := New(strings.NewReader(""), &out, logx.Nop())
	if err := a.DisplayMessage(context.Background(), Target, "Task Reminder", "It's time for: x\ny"); err != nil {
		t.Fatalf("display: %v", err)
	}
	want := "\n== Task Reminder ==\nIt's time for: x\ny\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

type shortWriter struct {
	n   int
	err error
}

func (w shortWriter) Write(p []byte) (int, error) { return min(w.n, len(p)), w.err }

func TestDisplayMessageErrors(t *testing.T) {
	t.Parallel()
	broken := errors.New("broken pipe")
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name         string
		ctx          context.Context
		w            shortWriter
		notDelivered bool
	}{
		{"canceled before writing", canceled, shortWriter{}, true},
		{"nothing written", context.Background(), shortWriter{n: 0, err: broken}, true},
		{"partly written", context.Background(), shortWriter{n: 4, err: broken}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := New(strings.NewReader(""), tc.w, logx.Nop())
			err := a.DisplayMessage(tc.ctx, Target, "Task Reminder", "x")
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(err, transport.ErrNotDelivered) != tc.notDelivered {
				t.Fatalf("err = %v, want ErrNotDelivered=%v", err, tc.notDelivered)
			}
		})
	}
}
