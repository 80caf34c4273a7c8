package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/hackhub/internal/metrics"
)

// DispatcherConfig sizes the background mail workers.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// DefaultDispatcherConfig is enough for a single hackathon instance.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{Workers: 2, QueueSize: 100, SendTimeout: 10 * time.Second}
}

// Dispatcher sends queued messages in the background.
//
// LIFECYCLE:
//   - Start launches the workers (only the first call has an effect)
//   - Enqueue never blocks; when the queue is full the message is dropped
//   - Stop closes the queue and waits until every queued message was tried
type Dispatcher struct {
	sender Sender
	config DispatcherConfig
	logger *slog.Logger

	queue     chan Message
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(sender Sender, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sender: sender,
		config: cfg,
		logger: logger,
		queue:  make(chan Message, cfg.QueueSize),
	}
}

func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.logger.Info("starting mail dispatcher", slog.Int("workers", d.config.Workers))
		for i := 0; i < d.config.Workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	})
}

func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down mail dispatcher", slog.Int("queued", len(d.queue)))
		d.mu.Lock()
		d.stopped = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

// Enqueue schedules msg for delivery and reports whether it was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop(msg, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(msg, "queue full")
		return false
	}
}

// Notify renders a message with build and enqueues it. Render errors are
// logged like delivery errors so callers never have to handle them.
func (d *Dispatcher) Notify(msg Message, err error) {
	if err != nil {
		d.logger.Error("failed to render email", slog.String("error", err.Error()))
		metrics.Email(string(msg.Kind), "failed")
		return
	}
	d.Enqueue(msg)
}

func (d *Dispatcher) drop(msg Message, reason string) {
	d.logger.Warn("email dropped",
		slog.String("kind", string(msg.Kind)),
		slog.String("to", msg.To),
		slog.String("reason", reason),
	)
	metrics.Email(string(msg.Kind), "dropped")
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("failed to send email",
			slog.String("kind", string(msg.Kind)),
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		metrics.Email(string(msg.Kind), "failed")
		return
	}
	metrics.Email(string(msg.Kind), "sent")
}
