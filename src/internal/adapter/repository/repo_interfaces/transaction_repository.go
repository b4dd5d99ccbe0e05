package repo_interfaces

import (
	"context"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

type TransactionRepository interface {
	GetByID(ctx context.Context, transactionID string) (domain.Transaction, error)
	ListByWallet(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error)
}

type ChargeBandRepository interface {
	ListActive(ctx context.Context) ([]domain.ChargeBand, error)
}
