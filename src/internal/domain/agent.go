package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Agent struct {
	ID             string
	AgentNumber    string
	OwnerID        string
	BusinessName   string
	FloatBalance   decimal.Decimal
	CommissionRate decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FloatEntry is one row of an agent's float history.
type FloatEntry struct {
	AgentID       string
	TransactionID string
	Kind          TransactionKind
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}

type MerchantType string

const (
	MerchantTypePaybill MerchantType = "PAYBILL"
	MerchantTypeTill    MerchantType = "TILL"
)

type Merchant struct {
	ID             string
	BusinessNumber string
	BusinessName   string
	Type           MerchantType
	WalletID       string
	IsActive       bool
	CreatedAt      time.Time
}
