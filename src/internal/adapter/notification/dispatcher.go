package notification

import (
	"context"
	"sync"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type DispatcherOptions struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
}

func DefaultDispatcherOptions() DispatcherOptions {
	return DispatcherOptions{
		Workers:        2,
		QueueSize:      1024,
		PublishTimeout: 5 * time.Second,
	}
}

type queued struct {
	ctx   context.Context
	event domain.TransactionEvent
}

// Dispatcher is the TransactionNotifier used by the engine. Events are
// queued and published by background workers; a full queue drops the event.
type Dispatcher struct {
	publisher service_interfaces.EventPublisher
	timeout   time.Duration
	queue     chan queued
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ service_interfaces.TransactionNotifier = (*Dispatcher)(nil)

func NewDispatcher(publisher service_interfaces.EventPublisher, opts DispatcherOptions) *Dispatcher {
	defaults := DefaultDispatcherOptions()
	if opts.Workers <= 0 {
		opts.Workers = defaults.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaults.PublishTimeout
	}

	d := &Dispatcher{
		publisher: publisher,
		timeout:   opts.PublishTimeout,
		queue:     make(chan queued, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, event domain.TransactionEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.Warn("notification dropped after shutdown", logger.Fields{"transactionId": event.TransactionID})
		return
	}

	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		logger.Warn("notification queue full, event dropped", logger.Fields{
			"transactionId": event.TransactionID,
			"status":        string(event.Status),
		})
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for item := range d.queue {
		d.deliver(item)
	}
}

func (d *Dispatcher) deliver(item queued) {
	ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, item.event); err != nil {
		fields := logger.Fields{
			"transactionId": item.event.TransactionID,
			"routingKey":    RoutingKey(item.event),
		}
		if IsOpen(err) {
			logger.Warn("notification skipped, breaker open", fields)
			return
		}
		logger.Error("notification publish failed", err, fields)
	}
}

// Close stops accepting events and waits for queued ones to drain or for
// ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
