package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeWallet AccountType = "WALLET"
	AccountTypeFloat  AccountType = "AGENT_FLOAT"
	AccountTypeSystem AccountType = "SYSTEM"
)

// Wallet is a customer, agent or merchant e-money balance. OwnerID is the
// subscriber identity handed over by the identity collaborator.
type Wallet struct {
	ID           string
	OwnerID      string
	PhoneNumber  string
	Balance      decimal.Decimal
	Currency     string
	IsActive     bool
	DailyLimit   decimal.Decimal
	MonthlyLimit decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SystemAccountCode string

const (
	SystemFeeRevenue        SystemAccountCode = "FEE_REVENUE"
	SystemCashClearing      SystemAccountCode = "CASH_CLEARING"
	SystemAirtimeSettlement SystemAccountCode = "AIRTIME_SETTLEMENT"
	SystemLoanBook          SystemAccountCode = "LOAN_BOOK"
)

// SystemAccount is an internal counterpart account. Its balance may go
// negative; it exists so every transaction's entries net to zero.
type SystemAccount struct {
	Code      SystemAccountCode
	Balance   decimal.Decimal
	UpdatedAt time.Time
}
