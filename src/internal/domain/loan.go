package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "PENDING"
	LoanStatusApproved  LoanStatus = "APPROVED"
	LoanStatusRejected  LoanStatus = "REJECTED"
	LoanStatusDisbursed LoanStatus = "DISBURSED"
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusPaid      LoanStatus = "PAID"
	LoanStatusDefaulted LoanStatus = "DEFAULTED"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusPending:   {LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved:  {LoanStatusDisbursed},
	LoanStatusDisbursed: {LoanStatusActive, LoanStatusPaid, LoanStatusDefaulted},
	LoanStatusActive:    {LoanStatusActive, LoanStatusPaid, LoanStatusDefaulted},
}

func (s LoanStatus) CanTransition(to LoanStatus) bool {
	for _, next := range loanTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Outstanding reports whether a loan in this status blocks a new application.
func (s LoanStatus) Outstanding() bool {
	return s == LoanStatusApproved || s == LoanStatusDisbursed || s == LoanStatusActive
}

// Repayable reports whether the loan accepts repayments.
func (s LoanStatus) Repayable() bool {
	return s == LoanStatusDisbursed || s == LoanStatusActive
}

type LoanProduct struct {
	ID              string
	Name            string
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	InterestRate    decimal.Decimal
	DurationDays    int
	FacilitationFee decimal.Decimal
	IsActive        bool
}

// LoanTerms is the priced outcome of applying a product to a principal.
type LoanTerms struct {
	Principal       decimal.Decimal
	InterestAmount  decimal.Decimal
	FacilitationFee decimal.Decimal
	TotalAmount     decimal.Decimal
	DurationDays    int
}

var daysPerYear = decimal.NewFromInt(365)

// Price computes simple daily interest over the product duration. Interest and
// total are each rounded half-up from the unrounded figures.
func (p LoanProduct) Price(principal decimal.Decimal) LoanTerms {
	dailyRate := p.InterestRate.Div(daysPerYear).Div(hundred)
	interest := principal.Mul(dailyRate).Mul(decimal.NewFromInt(int64(p.DurationDays)))
	total := principal.Add(interest).Add(p.FacilitationFee)

	return LoanTerms{
		Principal:       principal,
		InterestAmount:  RoundMoney(interest),
		FacilitationFee: p.FacilitationFee,
		TotalAmount:     RoundMoney(total),
		DurationDays:    p.DurationDays,
	}
}

type Loan struct {
	ID                string
	BorrowerWalletID  string
	BorrowerOwnerID   string
	ProductID         string
	Principal         decimal.Decimal
	InterestAmount    decimal.Decimal
	FacilitationFee   decimal.Decimal
	TotalAmount       decimal.Decimal
	AmountPaid        decimal.Decimal
	Balance           decimal.Decimal
	Status            LoanStatus
	Purpose           string
	AppliedAt         time.Time
	DueDate           time.Time
	ApprovedAt        *time.Time
	DisbursedAt       *time.Time
	PaidAt            *time.Time
	DisbursementTxnID string
	UpdatedAt         time.Time
}

// Consistent checks the repayment bookkeeping of the loan.
func (l Loan) Consistent() bool {
	if !l.AmountPaid.Add(l.Balance).Equal(l.TotalAmount) {
		return false
	}
	return l.Balance.IsZero() == (l.Status == LoanStatusPaid)
}

func (l Loan) Overdue(now time.Time) bool {
	return l.Status.Repayable() && now.After(l.DueDate)
}

type LoanRepayment struct {
	ID            string
	LoanID        string
	TransactionID string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
}
