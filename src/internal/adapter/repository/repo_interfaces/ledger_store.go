package repo_interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

// LedgerStore runs fn as one atomic unit: either every write fn makes through
// the unit is committed, or none is. A non-nil error from fn, or a cancelled
// context, discards the unit.
type LedgerStore interface {
	WithinUnit(ctx context.Context, fn func(ctx context.Context, unit LedgerUnit) error) error
}

// LedgerUnit is the read-modify-write surface of a single atomic unit.
//
// Lock methods hold the returned rows until the unit ends. Callers take locks
// by class in a fixed order (loan, wallets, agents, system accounts) and pass
// every id of a class in one call; ids already held by the unit are returned
// without locking again.
type LedgerUnit interface {
	LockLoan(ctx context.Context, loanID string) (domain.Loan, error)
	LockWallets(ctx context.Context, walletIDs ...string) (map[string]domain.Wallet, error)
	LockAgents(ctx context.Context, agentIDs ...string) (map[string]domain.Agent, error)
	LockSystemAccounts(ctx context.Context, codes ...domain.SystemAccountCode) (map[domain.SystemAccountCode]domain.SystemAccount, error)

	SetWalletBalance(ctx context.Context, walletID string, balance decimal.Decimal) error
	SetAgentFloat(ctx context.Context, agentID string, balance decimal.Decimal) error
	SetSystemBalance(ctx context.Context, code domain.SystemAccountCode, balance decimal.Decimal) error

	// RequestSeen reports whether the initiator already posted a transaction
	// under requestID.
	RequestSeen(ctx context.Context, initiatorID, requestID string) (bool, error)

	// InsertTransaction stores the record with its ledger entries, commission
	// and float entry. A clash on id, or on request id for the same initiator,
	// yields DuplicateTransaction.
	InsertTransaction(ctx context.Context, txn domain.Transaction) error

	// SumWalletDebits totals the outgoing ledger movements of a wallet since.
	SumWalletDebits(ctx context.Context, walletID string, since time.Time) (decimal.Decimal, error)

	FindOutstandingLoan(ctx context.Context, walletID string) (domain.Loan, bool, error)
	InsertLoan(ctx context.Context, loan domain.Loan) error
	UpdateLoan(ctx context.Context, loan domain.Loan) error
	InsertLoanRepayment(ctx context.Context, repayment domain.LoanRepayment) error
}
