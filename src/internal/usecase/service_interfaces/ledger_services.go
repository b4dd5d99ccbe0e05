package service_interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

type TransferIntent struct {
	Kind             domain.TransactionKind
	RequestID        string
	InitiatorID      string
	RecipientPhone   string
	AgentNumber      string
	BusinessNumber   string
	AccountReference string
	Network          string
	Amount           decimal.Decimal
	Narration        string

	// Set by the loan manager for the two loan legs.
	LoanID           string
	BorrowerWalletID string
}

type TransferService interface {
	Execute(ctx context.Context, intent TransferIntent) (domain.Transaction, error)
	PostWithin(ctx context.Context, unit repo_interfaces.LedgerUnit, intent TransferIntent) (domain.Transaction, error)
	Publish(ctx context.Context, txn domain.Transaction)
	GetTransaction(ctx context.Context, transactionID string) (domain.Transaction, error)
	Statement(ctx context.Context, ownerID string, limit int) (domain.Wallet, []domain.Transaction, error)
	FloatHistory(ctx context.Context, ownerID string, agentNumber string, limit int) (domain.Agent, []domain.FloatEntry, error)
	Commissions(ctx context.Context, ownerID string, agentNumber string, limit int) (CommissionStatement, error)
	WalletForOwner(ctx context.Context, ownerID string) (domain.Wallet, error)
}

// CommissionStatement carries the lifetime total alongside a page of the
// newest commission rows.
type CommissionStatement struct {
	Agent       domain.Agent
	Total       decimal.Decimal
	Commissions []domain.Commission
}

type ChargeQuote struct {
	Kind        domain.TransactionKind
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	TotalAmount decimal.Decimal
}

type ChargesService interface {
	Resolve(kind domain.TransactionKind, amount decimal.Decimal) (decimal.Decimal, error)
	Quote(kind domain.TransactionKind, amount decimal.Decimal) (ChargeQuote, error)
	Reload(ctx context.Context) (int, error)
}

type LoanApplication struct {
	OwnerID   string
	ProductID string
	Principal decimal.Decimal
	Purpose   string
}

type LoanQuote struct {
	ProductID string
	Terms     domain.LoanTerms
	DueDate   time.Time
}

type LoanService interface {
	Quote(ctx context.Context, productID string, principal decimal.Decimal) (LoanQuote, error)
	Apply(ctx context.Context, app LoanApplication) (domain.Loan, error)
	Approve(ctx context.Context, loanID string) (domain.Loan, domain.Transaction, error)
	Reject(ctx context.Context, loanID string) (domain.Loan, error)
	Repay(ctx context.Context, ownerID string, loanID string, amount decimal.Decimal, requestID string) (domain.Loan, domain.LoanRepayment, error)
	GetLoan(ctx context.Context, loanID string) (domain.Loan, []domain.LoanRepayment, error)
	ListProducts(ctx context.Context) ([]domain.LoanProduct, error)
	MarkDefaulted(ctx context.Context, asOf time.Time) (int, error)
}

type PinService interface {
	SetPin(ctx context.Context, ownerID string, pin string) error
	VerifyPin(ctx context.Context, ownerID string, pin string) error
}
