// Package console is the terminal UI: line commands and field prompts on
// stdin, messages on stdout.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	rtsup "planner/internal/runtime/supervisor"
	"planner/internal/task"
	"planner/internal/transport"
	logx "planner/pkg/logx"
)

// Channel is the transport.Target channel name for the terminal.
const Channel = "console"

const usage = `Commands:
  add   - add a task (you will be asked for each field)
  list  - show scheduled tasks
  help  - this text
  quit  - exit`

// Target is the only conversation the console has.
var Target = transport.Target{Channel: Channel}

type Adapter struct {
	in  io.Reader
	log logx.Logger

	outMu sync.Mutex
	out   io.Writer

	runMu sync.Mutex
	sup   *rtsup.Supervisor
	lines chan string
}

func New(in io.Reader, out io.Writer, log logx.Logger) *Adapter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{in: in, out: out, log: log}
}

func (a *Adapter) Name() string  { return Channel }
func (a *Adapter) Usage() string { return usage }

// Start begins reading commands. End of input is reported as a quit update.
func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	if a.sup != nil {
		return nil
	}

	// A read on stdin cannot be interrupted, so the reader lives outside the
	// supervisor and only feeds lines; it exits at EOF.
	if a.lines == nil {
		a.lines = make(chan string)
		go a.readLines(a.lines)
	}

	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log))
	lines := a.lines
	a.sup.Go("console.session", func(c context.Context) error {
		return a.session(c, lines, out)
	})
	a.write("Type 'help' for commands.\n> ")
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	a.runMu.Unlock()
	if sup == nil {
		return nil
	}
	return sup.Stop(ctx)
}

// DisplayMessage prints the message block. Safe to call from any goroutine.
func (a *Adapter) DisplayMessage(ctx context.Context, _ transport.Target, title, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("console: %w: %w", transport.ErrNotDelivered, err)
	}
	var b strings.Builder
	b.WriteString("\n== ")
	b.WriteString(title)
	b.WriteString(" ==\n")
	if body != "" {
		b.WriteString(body)
		b.WriteByte('\n')
	}
	n, err := a.writeN(b.String())
	if err != nil && n == 0 {
		return fmt.Errorf("console: %w: %w", transport.ErrNotDelivered, err)
	}
	return err
}

func (a *Adapter) write(s string) error {
	_, err := a.writeN(s)
	return err
}

func (a *Adapter) writeN(s string) (int, error) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	return io.WriteString(a.out, s)
}

func (a *Adapter) readLines(ch chan<- string) {
	defer close(ch)
	sc := bufio.NewScanner(a.in)
	for sc.Scan() {
		ch <- sc.Text()
	}
	if err := sc.Err(); err != nil {
		a.log.Warn("console input failed", logx.Err(err))
	}
}

// session runs the command loop until ctx is done or input ends.
func (a *Adapter) session(ctx context.Context, lines <-chan string, out chan<- transport.Update) error {
	next := func(prompt string) (string, bool) {
		if prompt != "" {
			_ = a.write(prompt)
		}
		select {
		case <-ctx.Done():
			return "", false
		case l, ok := <-lines:
			return l, ok
		}
	}
	emit := func(up transport.Update) bool {
		select {
		case <-ctx.Done():
			return false
		case out <- up:
			return true
		}
	}

	for {
		line, ok := next("")
		if !ok {
			if ctx.Err() == nil {
				emit(transport.Update{Kind: transport.UpdateQuit, Target: Target})
			}
			return nil
		}

		var up transport.Update
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			_ = a.write("> ")
			continue
		case "add", "a":
			d, ok := a.collectDraft(next)
			if !ok {
				continue
			}
			up = transport.Update{Kind: transport.UpdateSubmit, Target: Target, Draft: &d}
		case "list", "ls", "tasks":
			up = transport.Update{Kind: transport.UpdateList, Target: Target}
		case "quit", "exit", "q":
			emit(transport.Update{Kind: transport.UpdateQuit, Target: Target})
			return nil
		default:
			up = transport.Update{Kind: transport.UpdateHelp, Target: Target}
		}
		if !emit(up) {
			return nil
		}
		_ = a.write("> ")
	}
}

// collectDraft prompts for each field. An empty or unparseable date is left
// absent; the core reports it as missing.
func (a *Adapter) collectDraft(next func(prompt string) (string, bool)) (task.Draft, bool) {
	var d task.Draft
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Task name: ", &d.Name},
		{"Description: ", &d.Description},
		{"Date (YYYY-MM-DD): ", nil},
		{"Hour (0-23): ", &d.Hour},
		{"Minute (0-59): ", &d.Minute},
	}
	for _, f := range fields {
		v, ok := next(f.prompt)
		if !ok {
			return task.Draft{}, false
		}
		if f.dst != nil {
			*f.dst = v
			continue
		}
		if raw := strings.TrimSpace(v); raw != "" {
			if date, err := task.ParseDate(raw); err == nil {
				d.Date = &date
			} else {
				_ = a.write(fmt.Sprintf("  (%q is not a YYYY-MM-DD date)\n", raw))
			}
		}
	}
	return d, true
}
