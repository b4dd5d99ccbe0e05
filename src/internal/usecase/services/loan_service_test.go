package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, h *harness, ownerID, principal string) domain.Loan {
	t.Helper()
	loan, err := h.loans.Apply(context.Background(), service_interfaces.LoanApplication{
		OwnerID:   ownerID,
		ProductID: "LP-30",
		Principal: money(principal),
		Purpose:   "stock",
	})
	require.NoError(t, err)
	return loan
}

func TestLoanServiceQuote(t *testing.T) {
	h := newHarness(t)

	quote, err := h.loans.Quote(context.Background(), "LP-30", money("2000"))
	require.NoError(t, err)
	requireMoney(t, "16.44", quote.Terms.InterestAmount)
	requireMoney(t, "2066.44", quote.Terms.TotalAmount)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), quote.DueDate)

	_, err = h.loans.Quote(context.Background(), "LP-30", money("999.99"))
	requireKind(t, err, domain.KindInvalidAmount)
	_, err = h.loans.Quote(context.Background(), "LP-30", money("5000.01"))
	requireKind(t, err, domain.KindInvalidAmount)
	_, err = h.loans.Quote(context.Background(), "LP-404", money("2000"))
	requireKind(t, err, domain.KindNotFound)
}

func TestLoanServiceLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	before := h.ledgerTotal(t)

	loan := apply(t, h, "U-A", "2000")
	assert.True(t, strings.HasPrefix(loan.ID, "LN"))
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	requireMoney(t, "2066.44", loan.Balance)
	assert.True(t, loan.Consistent())

	// a pending application does not block another one, but only one can be disbursed
	second := apply(t, h, "U-A", "1000")

	loan, txn, err := h.loans.Approve(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDisbursed, loan.Status)
	assert.Equal(t, domain.KindLoanDisbursement, txn.Kind)
	assert.Equal(t, txn.ID, loan.DisbursementTxnID)
	require.NotNil(t, loan.DisbursedAt)
	requireMoney(t, "3000", h.balance(t, "W-A"))
	requireMoney(t, "-2000", h.system(domain.SystemLoanBook))

	_, _, err = h.loans.Approve(ctx, second.ID)
	requireKind(t, err, domain.KindInvalidState)
	_, err = h.loans.Apply(ctx, service_interfaces.LoanApplication{OwnerID: "U-A", ProductID: "LP-30", Principal: money("1000")})
	requireKind(t, err, domain.KindInvalidState)

	loan, repayment, err := h.loans.Repay(ctx, "U-A", loan.ID, money("1000"), "rp-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	requireMoney(t, "1066.44", loan.Balance)
	requireMoney(t, "2066.44", repayment.BalanceBefore)
	requireMoney(t, "1066.44", repayment.BalanceAfter)
	assert.True(t, loan.Consistent())

	loan, repayment, err = h.loans.Repay(ctx, "U-A", loan.ID, money("5000"), "rp-2")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPaid, loan.Status)
	requireMoney(t, "1066.44", repayment.Amount)
	assert.True(t, loan.Balance.IsZero())
	require.NotNil(t, loan.PaidAt)
	assert.True(t, loan.Consistent())

	requireMoney(t, "933.56", h.balance(t, "W-A"))
	requireMoney(t, "66.44", h.system(domain.SystemLoanBook))
	requireMoney(t, before.String(), h.ledgerTotal(t))

	stored, repayments, err := h.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPaid, stored.Status)
	assert.Len(t, repayments, 2)

	_, _, err = h.loans.Repay(ctx, "U-A", loan.ID, money("1"), "rp-3")
	requireKind(t, err, domain.KindInvalidState)

	// a paid loan no longer blocks disbursement
	_, _, err = h.loans.Approve(ctx, second.ID)
	require.NoError(t, err)

	kinds := map[domain.TransactionKind]int{}
	for _, e := range h.events.Events() {
		kinds[e.Kind]++
	}
	assert.Equal(t, 2, kinds[domain.KindLoanDisbursement])
	assert.Equal(t, 2, kinds[domain.KindLoanRepayment])
}

func TestLoanServiceRejectOverpayment(t *testing.T) {
	h := newHarness(t, func(c *harnessConfig) { c.rejectOverpayment = true })
	ctx := context.Background()

	loan := apply(t, h, "U-A", "1000")
	_, _, err := h.loans.Approve(ctx, loan.ID)
	require.NoError(t, err)

	_, _, err = h.loans.Repay(ctx, "U-A", loan.ID, money("1500"), "")
	requireKind(t, err, domain.KindInvalidAmount)
	requireMoney(t, "2000", h.balance(t, "W-A"))

	stored, repayments, err := h.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDisbursed, stored.Status)
	assert.Empty(t, repayments)
}

func TestLoanServiceRepayChecks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	loan := apply(t, h, "U-C", "1000")

	_, _, err := h.loans.Repay(ctx, "U-C", loan.ID, money("100"), "")
	requireKind(t, err, domain.KindInvalidState)

	_, _, err = h.loans.Approve(ctx, loan.ID)
	require.NoError(t, err)

	_, _, err = h.loans.Repay(ctx, "U-A", loan.ID, money("100"), "")
	requireKind(t, err, domain.KindForbidden)

	_, _, err = h.loans.Repay(ctx, "U-C", loan.ID, money("0"), "")
	requireKind(t, err, domain.KindInvalidAmount)

	// W-C only holds the disbursed 1000
	_, _, err = h.loans.Repay(ctx, "U-C", loan.ID, money("1010"), "")
	requireKind(t, err, domain.KindInsufficientFunds)

	stored, _, err := h.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDisbursed, stored.Status)
	assert.True(t, stored.AmountPaid.IsZero())
	requireMoney(t, "1000", h.balance(t, "W-C"))
}

func TestLoanServiceReject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	loan := apply(t, h, "U-B", "1500")
	rejected, err := h.loans.Reject(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusRejected, rejected.Status)

	_, _, err = h.loans.Approve(ctx, loan.ID)
	requireKind(t, err, domain.KindInvalidState)
	_, err = h.loans.Reject(ctx, loan.ID)
	requireKind(t, err, domain.KindInvalidState)
	_, _, err = h.loans.Approve(ctx, "LN-missing")
	requireKind(t, err, domain.KindNotFound)

	requireMoney(t, "1000", h.balance(t, "W-B"))
	apply(t, h, "U-B", "1500")
}

func TestLoanServiceMarkDefaulted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	loan := apply(t, h, "U-A", "2000")
	_, _, err := h.loans.Approve(ctx, loan.ID)
	require.NoError(t, err)
	pending := apply(t, h, "U-B", "1000")

	n, err := h.loans.MarkDefaulted(ctx, fixedNow.AddDate(0, 0, 29))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = h.loans.MarkDefaulted(ctx, fixedNow.AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, _, err := h.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDefaulted, stored.Status)

	untouched, _, err := h.loans.GetLoan(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, untouched.Status)

	n, err = h.loans.MarkDefaulted(ctx, fixedNow.Add(45*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLoanServiceApproveKeepsApplicationDueDate(t *testing.T) {
	clock := fixedNow
	h := newHarness(t, func(c *harnessConfig) {
		c.now = func() time.Time { return clock }
	})
	ctx := context.Background()

	loan := apply(t, h, "U-A", "2000")
	applied := fixedNow.AddDate(0, 0, 30)
	require.True(t, loan.DueDate.Equal(applied))

	clock = fixedNow.AddDate(0, 0, 5)
	approved, _, err := h.loans.Approve(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, approved.DueDate.Equal(applied), "due date moved to %s", approved.DueDate)
	require.NotNil(t, approved.ApprovedAt)
	assert.True(t, approved.ApprovedAt.Equal(clock))

	stored, _, err := h.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.DueDate.Equal(applied))

	n, err := h.loans.MarkDefaulted(ctx, applied.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLoanServiceListProducts(t *testing.T) {
	h := newHarness(t)
	h.store.AddLoanProduct(domain.LoanProduct{ID: "LP-OLD", Name: "Retired", MinAmount: money("1"), MaxAmount: money("2"), DurationDays: 7})

	products, err := h.loans.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "LP-30", products[0].ID)
}
