package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/memory"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *memory.Store {
	s := memory.NewStore()
	s.AddWallet(domain.Wallet{ID: "W-1", OwnerID: "U-1", PhoneNumber: "0700000001", Balance: decimal.NewFromInt(100), IsActive: true})
	s.AddWallet(domain.Wallet{ID: "W-2", OwnerID: "U-2", PhoneNumber: "0700000002", Balance: decimal.NewFromInt(50), IsActive: true})
	s.AddAgent(domain.Agent{ID: "AG-1", AgentNumber: "100100", OwnerID: "U-2", FloatBalance: decimal.NewFromInt(500), IsActive: true})
	return s
}

func balance(t *testing.T, s *memory.Store, id string) decimal.Decimal {
	t.Helper()
	w, err := s.Wallets().GetByID(context.Background(), id)
	require.NoError(t, err)
	return w.Balance
}

func TestStoreCommitsStagedWrites(t *testing.T) {
	s := seeded()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	err := s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		if _, err := unit.LockWallets(ctx, "W-2", "W-1"); err != nil {
			return err
		}
		require.NoError(t, unit.SetWalletBalance(ctx, "W-1", decimal.NewFromInt(70)))
		require.NoError(t, unit.SetWalletBalance(ctx, "W-2", decimal.NewFromInt(80)))
		return unit.InsertTransaction(ctx, domain.Transaction{
			ID:        "SM1",
			RequestID: "req-1",
			Kind:      domain.KindSendMoney,
			Status:    domain.TransactionStatusCompleted,
			CreatedAt: now,
			Entries: []domain.LedgerEntry{
				{TransactionID: "SM1", AccountType: domain.AccountTypeWallet, AccountID: "W-1", Delta: decimal.NewFromInt(-30)},
				{TransactionID: "SM1", AccountType: domain.AccountTypeWallet, AccountID: "W-2", Delta: decimal.NewFromInt(30)},
			},
		})
	})
	require.NoError(t, err)

	assert.True(t, balance(t, s, "W-1").Equal(decimal.NewFromInt(70)))
	assert.True(t, balance(t, s, "W-2").Equal(decimal.NewFromInt(80)))

	txns, err := s.Transactions().ListByWallet(context.Background(), "W-2", 10)
	require.NoError(t, err)
	require.Len(t, txns, 1)

	err = s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		used, err := unit.SumWalletDebits(ctx, "W-1", now.Add(-time.Hour))
		require.NoError(t, err)
		assert.True(t, used.Equal(decimal.NewFromInt(30)))
		used, err = unit.SumWalletDebits(ctx, "W-1", now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, used.IsZero())
		return nil
	})
	require.NoError(t, err)
}

func TestStoreDiscardsUnitOnError(t *testing.T) {
	s := seeded()
	boom := errors.New("boom")

	err := s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		if _, err := unit.LockWallets(ctx, "W-1"); err != nil {
			return err
		}
		require.NoError(t, unit.SetWalletBalance(ctx, "W-1", decimal.Zero))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, balance(t, s, "W-1").Equal(decimal.NewFromInt(100)))
	assert.Empty(t, s.CommittedTransactions())
}

func TestStoreRejectsOutOfOrderLocks(t *testing.T) {
	s := seeded()

	err := s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		if _, err := unit.LockAgents(ctx, "AG-1"); err != nil {
			return err
		}
		_, err := unit.LockWallets(ctx, "W-1")
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock order violation")

	err = s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		if _, err := unit.LockWallets(ctx, "W-2"); err != nil {
			return err
		}
		_, err := unit.LockWallets(ctx, "W-1")
		return err
	})
	require.Error(t, err)

	// ids already held are returned without locking again
	err = s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		if _, err := unit.LockWallets(ctx, "W-1", "W-2"); err != nil {
			return err
		}
		wallets, err := unit.LockWallets(ctx, "W-1")
		if err != nil {
			return err
		}
		assert.Contains(t, wallets, "W-1")
		_, err = unit.LockSystemAccounts(ctx, domain.SystemFeeRevenue)
		return err
	})
	require.NoError(t, err)
}

func TestStoreRefusesNegativeBalancesAndUnlockedWrites(t *testing.T) {
	s := seeded()

	err := s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		return unit.SetWalletBalance(ctx, "W-1", decimal.NewFromInt(1))
	})
	assert.Equal(t, domain.KindPersistenceFailure, domain.KindOf(err))

	err = s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		if _, err := unit.LockAgents(ctx, "AG-1"); err != nil {
			return err
		}
		return unit.SetAgentFloat(ctx, "AG-1", decimal.NewFromInt(-1))
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestStoreDuplicateRequestID(t *testing.T) {
	s := seeded()
	insert := func(id, initiator string) error {
		return s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
			return unit.InsertTransaction(ctx, domain.Transaction{ID: id, RequestID: "same", InitiatorID: initiator, Kind: domain.KindAirtime})
		})
	}

	require.NoError(t, insert("AT1", "U-1"))
	assert.ErrorIs(t, insert("AT2", "U-1"), domain.ErrDuplicateTransaction)
	assert.ErrorIs(t, insert("AT1", "U-2"), domain.ErrDuplicateTransaction)
	assert.NoError(t, insert("AT3", "U-2"))
}

func TestStoreRequestSeenIsScopedToInitiator(t *testing.T) {
	s := seeded()
	require.NoError(t, s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		seen, err := unit.RequestSeen(ctx, "U-1", "1")
		require.NoError(t, err)
		assert.False(t, seen)

		require.NoError(t, unit.InsertTransaction(ctx, domain.Transaction{ID: "AT1", RequestID: "1", InitiatorID: "U-1", Kind: domain.KindAirtime}))
		seen, err = unit.RequestSeen(ctx, "U-1", "1")
		require.NoError(t, err)
		assert.True(t, seen, "staged rows count")
		return nil
	}))

	err := s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		seen, err := unit.RequestSeen(ctx, "U-1", "1")
		require.NoError(t, err)
		assert.True(t, seen)

		seen, err = unit.RequestSeen(ctx, "U-2", "1")
		require.NoError(t, err)
		assert.False(t, seen)

		seen, err = unit.RequestSeen(ctx, "U-1", "")
		require.NoError(t, err)
		assert.False(t, seen)
		return nil
	})
	require.NoError(t, err)
}

func TestStoreLockWaitHonoursContext(t *testing.T) {
	s := seeded()
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
			if _, err := unit.LockWallets(ctx, "W-1"); err != nil {
				return err
			}
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := s.WithinUnit(ctx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		_, err := unit.LockWallets(ctx, "W-1")
		return err
	})
	close(release)
	require.NoError(t, <-done)

	assert.ErrorIs(t, err, domain.ErrPersistenceFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoreSingleOutstandingLoan(t *testing.T) {
	s := seeded()
	loan := func(id string, status domain.LoanStatus) domain.Loan {
		return domain.Loan{ID: id, BorrowerWalletID: "W-1", Status: status}
	}
	s.AddLoan(loan("LN1", domain.LoanStatusActive))

	err := s.WithinUnit(context.Background(), func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		found, ok, err := unit.FindOutstandingLoan(ctx, "W-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "LN1", found.ID)
		return unit.InsertLoan(ctx, loan("LN2", domain.LoanStatusApproved))
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = s.Loans().GetByID(context.Background(), "LN2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
