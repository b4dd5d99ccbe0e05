package service_interfaces

import (
	"context"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

// TransactionNotifier hands an event to the notification collaborator.
// Notify must not block the caller and never reports delivery failures.
type TransactionNotifier interface {
	Notify(ctx context.Context, event domain.TransactionEvent)
}

// EventPublisher delivers one event synchronously.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.TransactionEvent) error
}
