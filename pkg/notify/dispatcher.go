// Package notify delivers habit messages to Telegram. Send is the blocking
// primitive; Submit hands a message to a bounded queue served by background
// workers so callers never wait on the network.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smith3v/habit-reminder/pkg/logger"
	"golang.org/x/time/rate"
)

var (
	ErrNoDestination = errors.New("notify: destination is empty")
	ErrQueueFull     = errors.New("notify: queue full")
	ErrStopped       = errors.New("notify: dispatcher not running")
)

// DispatchError wraps a failed delivery. It is never retried.
type DispatchError struct {
	Destination string
	Err         error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s: %v", e.Destination, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Sender performs one message delivery.
type Sender interface {
	SendMessage(ctx context.Context, destination, text string) error
}

// Options tune delivery. Zero values fall back to defaults.
type Options struct {
	SendTimeout time.Duration
	RatePerSec  int
	QueueSize   int
	Workers     int
}

// Task is one queued message.
type Task struct {
	ID          string
	Destination string
	Message     string
	Enqueued    time.Time
}

type Dispatcher struct {
	sender  Sender
	opts    Options
	limiter *rate.Limiter

	mu        sync.Mutex
	queue     chan Task
	accepting bool
	wg        sync.WaitGroup
}

// New returns a stopped dispatcher; call Start before Submit.
func New(sender Sender, opts Options) *Dispatcher {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 20
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	return &Dispatcher{
		sender:  sender,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec),
	}
}

// Send delivers message to destination and waits for the result. Failures
// are logged and returned as *DispatchError.
func (d *Dispatcher) Send(ctx context.Context, destination, message string) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		logger.Warn("skipping message without destination")
		return ErrNoDestination
	}

	if d.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.SendTimeout)
		defer cancel()
	}

	if err := d.limiter.Wait(ctx); err != nil {
		logger.Error("rate limiter wait failed", "destination", destination, "error", err)
		return &DispatchError{Destination: destination, Err: err}
	}

	if err := d.sender.SendMessage(ctx, destination, message); err != nil {
		logger.Error("failed to send telegram message", "destination", destination, "error", err)
		return &DispatchError{Destination: destination, Err: err}
	}
	logger.Info("telegram message sent", "destination", destination)
	return nil
}

// Start launches the queue workers. Calling it on a running dispatcher is a
// no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.accepting {
		return
	}
	d.queue = make(chan Task, d.opts.QueueSize)
	d.accepting = true
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, d.queue)
	}
	logger.Info("dispatcher started", "workers", d.opts.Workers, "queue_size", d.opts.QueueSize)
}

// Stop rejects new submissions and waits for queued tasks to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.accepting {
		d.mu.Unlock()
		return
	}
	d.accepting = false
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	logger.Info("dispatcher stopped")
}

// Submit queues a message for background delivery and returns the task id.
func (d *Dispatcher) Submit(destination, message string) (string, error) {
	task := Task{
		ID:          uuid.NewString(),
		Destination: destination,
		Message:     message,
		Enqueued:    time.Now(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.accepting {
		return "", ErrStopped
	}
	select {
	case d.queue <- task:
		logger.Debug("message queued", "task_id", task.ID, "destination", destination)
		return task.ID, nil
	default:
		return "", ErrQueueFull
	}
}

func (d *Dispatcher) worker(ctx context.Context, queue <-chan Task) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-queue:
			if !ok {
				return
			}
			if err := d.Send(ctx, task.Destination, task.Message); err != nil {
				logger.Debug("queued message not delivered", "task_id", task.ID, "error", err)
			}
		}
	}
}
