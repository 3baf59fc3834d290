package mailer

import (
	"context"
	"log/slog"
	"time"
)

// Poller re-dispatches outbox rows still pending after one interval.
type Poller struct {
	store     Store
	client    *Client
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewPoller(store Store, client *Client, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{store: store, client: client, interval: interval, batchSize: 50, logger: logger}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("mail outbox poller started", "interval", p.interval)
	for {
		if n := p.Poll(ctx); n > 0 {
			p.logger.Info("re-dispatched pending emails", "count", n)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("mail outbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// Poll dispatches one batch and returns how many messages were queued.
func (p *Poller) Poll(ctx context.Context) int {
	pending, err := p.store.ListPending(ctx, time.Now().Add(-p.interval), p.batchSize)
	if err != nil {
		p.logger.Error("failed to list pending emails", "error", err)
		return 0
	}

	queued := 0
	for _, msg := range pending {
		if err := p.client.Dispatch(msg); err != nil {
			p.logger.Warn("mail queue full, deferring to next poll", "remaining", len(pending)-queued)
			break
		}
		queued++
	}
	return queued
}
