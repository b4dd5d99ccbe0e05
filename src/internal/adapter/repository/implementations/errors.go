package implementations

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

const (
	pqUniqueViolation  = "23505"
	pqCheckViolation   = "23514"
	pqQueryCanceled    = "57014"
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"

	outstandingLoanIndex = "loans_one_outstanding_per_wallet"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapError turns a driver error into a ledger error. Errors that are already
// ledger errors pass through unchanged.
func mapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.KindNotFound, err, format, args...)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			if pqErr.Constraint == outstandingLoanIndex {
				return domain.WrapError(domain.KindInvalidState, err, "borrower already has an outstanding loan")
			}
			return domain.WrapError(domain.KindDuplicateTransaction, err, format, args...)
		case pqCheckViolation:
			return domain.WrapError(domain.KindInsufficientFunds, err, format, args...)
		case pqQueryCanceled, pqLockNotAvailable, pqDeadlockDetected:
			return domain.WrapError(domain.KindPersistenceFailure, err, format, args...)
		}
	}
	return domain.WrapError(domain.KindPersistenceFailure, err, format, args...)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
