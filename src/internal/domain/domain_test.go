package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundMoneyRoundsHalfUp(t *testing.T) {
	cases := map[string]string{
		"16.438356": "16.44",
		"2.345":     "2.35",
		"2.344":     "2.34",
		"10":        "10.00",
		"0.005":     "0.01",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMoney(RoundMoney(dec(in))), in)
	}
}

func TestParseMoneyRejectsSubCentAmounts(t *testing.T) {
	_, err := ParseMoney("10.001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	d, err := ParseMoney(" 10.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("10.5")))

	_, err = ParseMoney("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCheckPositive(t *testing.T) {
	assert.ErrorIs(t, CheckPositive(decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, CheckPositive(dec("-1")), ErrInvalidAmount)
	assert.NoError(t, CheckPositive(dec("0.01")))
}

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("posting: %w", NewError(KindInsufficientFunds, "wallet %s has insufficient funds", "W1"))

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.Equal(t, "wallet W1 has insufficient funds", Describe(err))
	assert.Equal(t, KindPersistenceFailure, KindOf(errors.New("driver: bad connection")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestBandTableResolvesInclusiveBounds(t *testing.T) {
	table, err := NewBandTable([]ChargeBand{
		{ID: 2, Kind: KindSendMoney, MinAmount: dec("101"), MaxAmount: dec("500"), Fee: dec("7"), IsActive: true},
		{ID: 1, Kind: KindSendMoney, MinAmount: dec("1"), MaxAmount: dec("100"), Fee: dec("0"), IsActive: true},
		{ID: 3, Kind: KindSendMoney, MinAmount: dec("501"), MaxAmount: dec("1000"), Fee: dec("13"), IsActive: true},
		{ID: 4, Kind: KindWithdrawal, MinAmount: dec("1"), MaxAmount: dec("100"), Fee: dec("11"), IsActive: false},
	})
	require.NoError(t, err)

	fee, ok := table.Resolve(KindSendMoney, dec("101"))
	assert.True(t, ok)
	assert.True(t, fee.Equal(dec("7")))

	fee, ok = table.Resolve(KindSendMoney, dec("500"))
	assert.True(t, ok)
	assert.True(t, fee.Equal(dec("7")))

	_, ok = table.Resolve(KindSendMoney, dec("100.50"))
	assert.False(t, ok)

	_, ok = table.Resolve(KindSendMoney, dec("1000.01"))
	assert.False(t, ok)

	assert.False(t, table.HasBands(KindWithdrawal))
	assert.Equal(t, 3, table.Size())
}

func TestBandTableRejectsOverlap(t *testing.T) {
	_, err := NewBandTable([]ChargeBand{
		{ID: 1, Kind: KindWithdrawal, MinAmount: dec("50"), MaxAmount: dec("100"), Fee: dec("11"), IsActive: true},
		{ID: 2, Kind: KindWithdrawal, MinAmount: dec("100"), MaxAmount: dec("2500"), Fee: dec("29"), IsActive: true},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBandTableRejectsInvertedRangeAndNegativeFee(t *testing.T) {
	_, err := NewBandTable([]ChargeBand{
		{ID: 1, Kind: KindWithdrawal, MinAmount: dec("100"), MaxAmount: dec("50"), Fee: dec("1"), IsActive: true},
	})
	assert.Error(t, err)

	_, err = NewBandTable([]ChargeBand{
		{ID: 1, Kind: KindWithdrawal, MinAmount: dec("1"), MaxAmount: dec("50"), Fee: dec("-1"), IsActive: true},
	})
	assert.Error(t, err)
}

func TestLoanProductPriceMatchesDailyInterest(t *testing.T) {
	product := LoanProduct{
		InterestRate:    dec("10"),
		DurationDays:    30,
		FacilitationFee: dec("50"),
	}

	terms := product.Price(dec("2000"))

	assert.Equal(t, "16.44", FormatMoney(terms.InterestAmount))
	assert.Equal(t, "2066.44", FormatMoney(terms.TotalAmount))
}

func TestLoanStatusTransitions(t *testing.T) {
	assert.True(t, LoanStatusPending.CanTransition(LoanStatusApproved))
	assert.True(t, LoanStatusPending.CanTransition(LoanStatusRejected))
	assert.False(t, LoanStatusApproved.CanTransition(LoanStatusRejected))
	assert.False(t, LoanStatusDisbursed.CanTransition(LoanStatusRejected))
	assert.False(t, LoanStatusPaid.CanTransition(LoanStatusActive))
	assert.True(t, LoanStatusActive.CanTransition(LoanStatusPaid))
	assert.True(t, LoanStatusDisbursed.CanTransition(LoanStatusDefaulted))

	assert.True(t, LoanStatusApproved.Outstanding())
	assert.False(t, LoanStatusPending.Outstanding())
	assert.False(t, LoanStatusPaid.Repayable())
}

func TestLoanConsistency(t *testing.T) {
	loan := Loan{TotalAmount: dec("2066.44"), AmountPaid: dec("66.44"), Balance: dec("2000"), Status: LoanStatusActive}
	assert.True(t, loan.Consistent())

	loan.Balance = decimal.Zero
	loan.AmountPaid = dec("2066.44")
	assert.False(t, loan.Consistent())
	loan.Status = LoanStatusPaid
	assert.True(t, loan.Consistent())

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	active := Loan{Status: LoanStatusActive, DueDate: due}
	assert.True(t, active.Overdue(due.Add(time.Hour)))
	assert.False(t, active.Overdue(due.Add(-time.Hour)))
}

func TestTransactionKindPrefixes(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range TransactionKinds() {
		p := k.Prefix()
		assert.Len(t, p, 2)
		assert.False(t, seen[p], "prefix %s reused", p)
		seen[p] = true
	}
	assert.False(t, KindDeposit.ChargesFee())
	assert.True(t, KindWithdrawal.ChargesFee())
	assert.Equal(t, "TX", TransactionKind("BOGUS").Prefix())
}
