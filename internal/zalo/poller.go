package zalo

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

// Poller feeds getUpdates results to the bot until its context ends.
type Poller struct {
	Client   *Client
	Bot      *Bot
	Interval time.Duration
	Logger   *slog.Logger

	running atomic.Bool
}

// NewPoller polls every interval, one second when interval is not positive.
func NewPoller(client *Client, bot *Bot, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{Client: client, Bot: bot, Interval: interval, Logger: logger}
}

// Running reports whether Run is active.
func (p *Poller) Running() bool {
	return p.running.Load()
}

func newBackoff() retry.Backoff {
	return retry.WithCappedDuration(time.Minute, retry.NewExponential(time.Second))
}

// Run polls until ctx is cancelled. With no token configured it idles and re-checks.
// Errors back off exponentially up to a minute.
func (p *Poller) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("zalo poller already running")
	}
	defer p.running.Store(false)
	p.Logger.Info("zalo polling started", "interval", p.Interval)

	backoff := newBackoff()
	for {
		wait := p.Interval
		if !p.Client.Configured() {
			wait = 5 * time.Second
		} else if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			d, _ := backoff.Next()
			p.Logger.Warn("zalo polling error", "error", err, "retry_in", d)
			wait = d
		} else {
			backoff = newBackoff()
		}

		select {
		case <-ctx.Done():
			p.Logger.Info("zalo polling stopped")
			return nil
		case <-time.After(wait):
		}
	}
	p.Logger.Info("zalo polling stopped")
	return nil
}

func (p *Poller) pollOnce(ctx context.Context) error {
	updates, err := p.Client.GetUpdates(ctx, 30*time.Second)
	if err != nil {
		return err
	}
	for _, u := range updates {
		p.Bot.HandleUpdate(ctx, u)
	}
	return nil
}
