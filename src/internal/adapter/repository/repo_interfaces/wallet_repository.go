package repo_interfaces

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

type WalletRepository interface {
	GetByID(ctx context.Context, walletID string) (domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (domain.Wallet, error)
	GetByPhone(ctx context.Context, phoneNumber string) (domain.Wallet, error)
	GetPinHash(ctx context.Context, walletID string) (string, error)
	SetPinHash(ctx context.Context, walletID string, pinHash string) error
}

type AgentRepository interface {
	GetByNumber(ctx context.Context, agentNumber string) (domain.Agent, error)
	ListFloatEntries(ctx context.Context, agentID string, limit int) ([]domain.FloatEntry, error)
	// ListCommissions returns the newest commissions earned by the agent first.
	ListCommissions(ctx context.Context, agentID string, limit int) ([]domain.Commission, error)
	TotalCommission(ctx context.Context, agentID string) (decimal.Decimal, error)
}

type MerchantRepository interface {
	GetByBusinessNumber(ctx context.Context, businessNumber string) (domain.Merchant, error)
}
