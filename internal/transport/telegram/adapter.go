package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "planner/internal/runtime/supervisor"
	"planner/internal/transport"
	logx "planner/pkg/logx"
)

// Channel is the transport.Target channel name for Telegram chats.
const Channel = "telegram"

type Config struct {
	Token        string
	OwnerUserIDs []int64
	PollTimeout  time.Duration
}

// Adapter is the Telegram UI: commands in, plain-text messages out.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	out     atomic.Value // chan<- transport.Update
	runMu   sync.Mutex
	running bool

	// sup owns the poll loop and the drop reporter. Created on Start.
	sup *rtsup.Supervisor

	// droppedUpdates counts updates dropped because the dispatcher was
	// slower than the poll loop. Logged periodically.
	droppedUpdates atomic.Uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if len(cfg.OwnerUserIDs) == 0 {
		return nil, errors.New("telegram owner_user_ids is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	a := &Adapter{cfg: cfg, log: log}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, _ tele.Context) {
			a.log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, err
	}
	a.bot = b
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.bot.Handle(tele.OnText, a.onText)
	return a, nil
}

func (a *Adapter) Name() string  { return Channel }
func (a *Adapter) Usage() string { return usage }

func (a *Adapter) onText(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Chat == nil {
		return nil
	}
	sender := c.Sender()
	if sender == nil || !isOwner(a.cfg.OwnerUserIDs, sender.ID) {
		var id int64
		if sender != nil {
			id = sender.ID
		}
		a.log.Debug("ignoring non-owner message", logx.Int64("from_id", id), logx.Int64("chat_id", m.Chat.ID))
		return nil
	}
	up, ok := parseCommand(m.Text, transport.Target{Channel: Channel, ChatID: m.Chat.ID})
	if !ok {
		return nil
	}
	a.sendUpdate(up)
	return nil
}

func (a *Adapter) sendUpdate(up transport.Update) {
	out, _ := a.out.Load().(chan<- transport.Update)
	if out == nil {
		return
	}
	select {
	case out <- up:
	default:
		a.droppedUpdates.Add(1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log),
		// adapter errors should not take down the whole app.
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("telegram.drop_report", func(c context.Context) {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		report := func() {
			if n := a.droppedUpdates.Swap(0); n > 0 {
				a.log.Warn("incoming updates dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
			}
		}
		for {
			select {
			case <-c.Done():
				report()
				return
			case <-ticker.C:
				report()
			}
		}
	})

	sup.Go0("telegram.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})

	// bot.Start blocks until Stop. It can also return on its own in some
	// failure modes; restart it while the context is alive.
	sup.GoRestart("telegram.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		return c.Err()
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithStopOnCleanExit(false),
	)
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	var nilOut chan<- transport.Update
	a.out.Store(nilOut)
	a.runMu.Unlock()

	if !wasRunning || sup == nil {
		return nil
	}
	sup.Cancel()

	// Keep shutdown snappy even if getUpdates long-poll is still waiting.
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sup.Wait(wctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			a.log.Warn("telegram stop timed out", logx.Err(err))
			return nil
		}
		a.log.Debug("telegram stopped with supervisor error", logx.Err(err))
	}
	return nil
}

// DisplayMessage sends "title\n\nbody" to the target chat, split if needed.
func (a *Adapter) DisplayMessage(ctx context.Context, to transport.Target, title, body string) error {
	if to.ChatID == 0 {
		return errors.New("telegram: target has no chat id")
	}
	text := title
	if body != "" {
		text += "\n\n" + body
	}

	chat := &tele.Chat{ID: to.ChatID}
	for i, chunk := range splitText(text, textLimit) {
		if err := ctx.Err(); err != nil {
			return deliveryError(i, err)
		}
		if _, err := a.bot.Send(chat, chunk, &tele.SendOptions{DisableWebPagePreview: true}); err != nil {
			return deliveryError(i, err)
		}
	}
	return nil
}

// deliveryError marks err with transport.ErrNotDelivered when the chat has
// seen nothing yet: no chunk went out and the failure is either local or a
// Bot API rejection. A timeout or network error may hide a delivered message.
func deliveryError(sent int, err error) error {
	if sent > 0 {
		return fmt.Errorf("telegram: failed after %d of the message's chunks were delivered: %w", sent, err)
	}
	var (
		apiErr   *tele.Error
		floodErr tele.FloodError
	)
	if errors.Is(err, context.Canceled) || errors.As(err, &apiErr) || errors.As(err, &floodErr) {
		return fmt.Errorf("telegram: %w: %w", transport.ErrNotDelivered, err)
	}
	return err
}
