package notification

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type BreakerOptions struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

func DefaultBreakerOptions() BreakerOptions {
	return BreakerOptions{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// BreakerPublisher stops calling a failing broker until the open timeout
// has passed.
type BreakerPublisher struct {
	next    service_interfaces.EventPublisher
	breaker *gobreaker.CircuitBreaker
}

var _ service_interfaces.EventPublisher = (*BreakerPublisher)(nil)

func NewBreakerPublisher(name string, next service_interfaces.EventPublisher, opts BreakerOptions) *BreakerPublisher {
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = DefaultBreakerOptions().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: opts.HalfOpenRequests,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("notification breaker state changed", logger.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}
	return &BreakerPublisher{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerPublisher) Publish(ctx context.Context, event domain.TransactionEvent) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.next.Publish(ctx, event)
	})
	return err
}

func (b *BreakerPublisher) State() gobreaker.State {
	return b.breaker.State()
}

// IsOpen reports whether err was produced by a tripped breaker rather than
// by the broker itself.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
