package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/muamalati/pkg/ids"
	"github.com/frahmantamala/muamalati/pkg/metrics"
)

var ErrQueueFull = errors.New("mail queue full")

// Store persists the outbox so queued mail survives a restart.
type Store interface {
	Create(ctx context.Context, msg Message) error
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string, giveUp bool) error
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]Message, error)
}

type Worker struct {
	ID         int
	WorkerPool chan chan Message
	JobChannel chan Message
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Message, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Message),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Message)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case msg := <-w.JobChannel:
				w.Logger.Debug("mail worker processing message", "worker_id", w.ID, "outbox_id", msg.ID)
				processFunc(msg)
			case <-ctx.Done():
				w.Logger.Debug("mail worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	MaxWorkers  int
	QueueSize   int
	MaxAttempts int
	SendTimeout time.Duration
}

// Client queues outbox messages and drains them through a Sender on a fixed worker pool.
type Client struct {
	sender      Sender
	store       Store
	logger      *slog.Logger
	maxAttempts int
	sendTimeout time.Duration
	now         func() time.Time

	jobQueue   chan Message
	workerPool chan chan Message
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewClient(config Config, sender Sender, store Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	maxAttempts := config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	sendTimeout := config.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}

	client := &Client{
		sender:      sender,
		store:       store,
		logger:      logger,
		maxAttempts: maxAttempts,
		sendTimeout: sendTimeout,
		now:         time.Now,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Message, queueSize),
		workerPool: make(chan chan Message, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.startWorkerPool()

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.process)
		}

		c.wg.Add(1)
		go c.dispatch()

		c.logger.Info("mail worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- msg:
				case <-c.ctx.Done():
					return
				}
			case <-c.ctx.Done():
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("mail dispatcher shutting down")
			return
		}
	}
}

// Enqueue stores the message in the outbox and hands it to the pool without blocking.
// A full queue leaves the row pending for the poller.
func (c *Client) Enqueue(ctx context.Context, to, subject, htmlBody string) error {
	msg := Message{
		ID:       ids.New(),
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	}
	if err := c.store.Create(ctx, msg); err != nil {
		return err
	}
	if err := c.Dispatch(msg); err != nil {
		c.logger.Warn("mail queue full, message left in outbox",
			"outbox_id", msg.ID,
			"queue_capacity", cap(c.jobQueue))
	}
	return nil
}

// Dispatch queues an already stored message.
func (c *Client) Dispatch(msg Message) error {
	select {
	case <-c.ctx.Done():
		return context.Canceled
	default:
	}

	select {
	case c.jobQueue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) process(msg Message) {
	ctx, cancel := context.WithTimeout(c.ctx, c.sendTimeout)
	defer cancel()

	if err := c.sender.Send(ctx, msg); err != nil {
		giveUp := msg.Attempts+1 >= c.maxAttempts
		c.logger.Error("failed to send email",
			"error", err,
			"outbox_id", msg.ID,
			"attempt", msg.Attempts+1,
			"give_up", giveUp)
		metrics.RecordEmail("failed")
		if markErr := c.store.MarkFailed(ctx, msg.ID, err.Error(), giveUp); markErr != nil {
			c.logger.Error("failed to record email failure", "error", markErr, "outbox_id", msg.ID)
		}
		return
	}

	metrics.RecordEmail("sent")
	if err := c.store.MarkSent(ctx, msg.ID, c.now()); err != nil {
		c.logger.Error("failed to mark email sent", "error", err, "outbox_id", msg.ID)
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down mail client")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("mail client shutdown complete")
}
