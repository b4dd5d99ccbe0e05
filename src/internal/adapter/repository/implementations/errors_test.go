package implementations

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	ledgerErr := domain.NewError(domain.KindInactiveAccount, "wallet W-1 is inactive")

	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"no rows", sql.ErrNoRows, domain.KindNotFound},
		{"duplicate request", &pq.Error{Code: pqUniqueViolation, Constraint: "transactions_initiator_request_id_key"}, domain.KindDuplicateTransaction},
		{"second outstanding loan", &pq.Error{Code: pqUniqueViolation, Constraint: outstandingLoanIndex}, domain.KindInvalidState},
		{"negative balance", &pq.Error{Code: pqCheckViolation}, domain.KindInsufficientFunds},
		{"lock timeout", &pq.Error{Code: pqLockNotAvailable}, domain.KindPersistenceFailure},
		{"deadlock", &pq.Error{Code: pqDeadlockDetected}, domain.KindPersistenceFailure},
		{"deadline", context.DeadlineExceeded, domain.KindPersistenceFailure},
		{"ledger error passes through", ledgerErr, domain.KindInactiveAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "wallet %s", "W-1")
			assert.Equal(t, tt.want, domain.KindOf(got))
			assert.True(t, errors.Is(got, tt.err))
		})
	}

	assert.NoError(t, mapError(nil, "unused"))
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullString("").Valid)
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, nullString("x"))
	assert.Nil(t, nullTime(sql.NullTime{}))
}
