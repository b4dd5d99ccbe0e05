package implementations

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

const loanColumns = `id, borrower_wallet_id, borrower_owner_id, product_id, principal, interest_amount,
	facilitation_fee, total_amount, amount_paid, balance, status, purpose, applied_at, due_date,
	approved_at, disbursed_at, paid_at, disbursement_txn_id, updated_at`

const loanProductColumns = `id, name, min_amount, max_amount, interest_rate, duration_days, facilitation_fee, is_active`

type LoanRepository struct {
	db *sql.DB
}

var _ repo_interfaces.LoanRepository = (*LoanRepository)(nil)

func NewLoanRepository(db *sql.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func scanLoan(row rowScanner) (domain.Loan, error) {
	var (
		l           domain.Loan
		approvedAt  sql.NullTime
		disbursedAt sql.NullTime
		paidAt      sql.NullTime
		txnID       sql.NullString
	)
	err := row.Scan(
		&l.ID,
		&l.BorrowerWalletID,
		&l.BorrowerOwnerID,
		&l.ProductID,
		&l.Principal,
		&l.InterestAmount,
		&l.FacilitationFee,
		&l.TotalAmount,
		&l.AmountPaid,
		&l.Balance,
		&l.Status,
		&l.Purpose,
		&l.AppliedAt,
		&l.DueDate,
		&approvedAt,
		&disbursedAt,
		&paidAt,
		&txnID,
		&l.UpdatedAt,
	)
	if err != nil {
		return domain.Loan{}, err
	}
	l.ApprovedAt = nullTime(approvedAt)
	l.DisbursedAt = nullTime(disbursedAt)
	l.PaidAt = nullTime(paidAt)
	l.DisbursementTxnID = txnID.String
	return l, nil
}

func scanLoanProduct(row rowScanner) (domain.LoanProduct, error) {
	var p domain.LoanProduct
	err := row.Scan(&p.ID, &p.Name, &p.MinAmount, &p.MaxAmount, &p.InterestRate, &p.DurationDays, &p.FacilitationFee, &p.IsActive)
	return p, err
}

func (r *LoanRepository) GetProduct(ctx context.Context, productID string) (domain.LoanProduct, error) {
	query := `SELECT ` + loanProductColumns + ` FROM loan_products WHERE id = $1`
	p, err := scanLoanProduct(r.db.QueryRowContext(ctx, query, strings.TrimSpace(productID)))
	if err != nil {
		return domain.LoanProduct{}, mapError(err, "loan product %s not found", productID)
	}
	return p, nil
}

func (r *LoanRepository) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	query := `SELECT ` + loanProductColumns + ` FROM loan_products WHERE is_active ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "unable to read loan products")
	}
	defer rows.Close()

	var out []domain.LoanProduct
	for rows.Next() {
		p, err := scanLoanProduct(rows)
		if err != nil {
			return nil, mapError(err, "unable to read loan products")
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err(), "unable to read loan products")
}

func (r *LoanRepository) GetByID(ctx context.Context, loanID string) (domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	l, err := scanLoan(r.db.QueryRowContext(ctx, query, strings.TrimSpace(loanID)))
	if err != nil {
		return domain.Loan{}, mapError(err, "loan %s not found", loanID)
	}
	return l, nil
}

func (r *LoanRepository) ListRepayments(ctx context.Context, loanID string) ([]domain.LoanRepayment, error) {
	const query = `
SELECT id, loan_id, transaction_id, amount, balance_before, balance_after, created_at
FROM loan_repayments
WHERE loan_id = $1
ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, mapError(err, "unable to read repayments")
	}
	defer rows.Close()

	var out []domain.LoanRepayment
	for rows.Next() {
		var p domain.LoanRepayment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.TransactionID, &p.Amount, &p.BalanceBefore, &p.BalanceAfter, &p.CreatedAt); err != nil {
			return nil, mapError(err, "unable to read repayments")
		}
		out = append(out, p)
	}
	return out, mapError(rows.Err(), "unable to read repayments")
}

func (r *LoanRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]domain.Loan, error) {
	query := `
SELECT ` + loanColumns + `
FROM loans
WHERE status IN ('DISBURSED', 'ACTIVE')
  AND due_date < $1
ORDER BY due_date
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, asOf, limit)
	if err != nil {
		return nil, mapError(err, "unable to read overdue loans")
	}
	defer rows.Close()

	var out []domain.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, mapError(err, "unable to read overdue loans")
		}
		out = append(out, l)
	}
	return out, mapError(rows.Err(), "unable to read overdue loans")
}
