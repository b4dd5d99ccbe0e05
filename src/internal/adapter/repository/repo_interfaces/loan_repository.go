package repo_interfaces

import (
	"context"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

type LoanRepository interface {
	GetProduct(ctx context.Context, productID string) (domain.LoanProduct, error)
	ListProducts(ctx context.Context) ([]domain.LoanProduct, error)
	GetByID(ctx context.Context, loanID string) (domain.Loan, error)
	ListRepayments(ctx context.Context, loanID string) ([]domain.LoanRepayment, error)
	ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]domain.Loan, error)
}
