package implementations

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

const transactionColumns = `id, request_id, initiator_id, kind, status, amount, fee, total_amount, currency,
	source_wallet_id, destination_wallet_id, agent_id, merchant_id, loan_id,
	account_reference, recipient_phone, network, narration, parties, created_at, completed_at`

type TransactionRepository struct {
	db *sql.DB
}

var _ repo_interfaces.TransactionRepository = (*TransactionRepository)(nil)

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		t           domain.Transaction
		requestID   sql.NullString
		source      sql.NullString
		destination sql.NullString
		agentID     sql.NullString
		merchantID  sql.NullString
		loanID      sql.NullString
		parties     []byte
		completedAt sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&requestID,
		&t.InitiatorID,
		&t.Kind,
		&t.Status,
		&t.Amount,
		&t.Fee,
		&t.TotalAmount,
		&t.Currency,
		&source,
		&destination,
		&agentID,
		&merchantID,
		&loanID,
		&t.AccountReference,
		&t.RecipientPhone,
		&t.Network,
		&t.Narration,
		&parties,
		&t.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	t.RequestID = requestID.String
	t.SourceWalletID = source.String
	t.DestinationWalletID = destination.String
	t.AgentID = agentID.String
	t.MerchantID = merchantID.String
	t.LoanID = loanID.String
	t.CompletedAt = nullTime(completedAt)
	if len(parties) > 0 {
		if err := json.Unmarshal(parties, &t.Parties); err != nil {
			return domain.Transaction{}, err
		}
	}
	return t, nil
}

// GetByID loads the transaction with its ledger entries, commission and
// float entry.
func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (domain.Transaction, error) {
	id := strings.TrimSpace(transactionID)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return domain.Transaction{}, mapError(err, "transaction %s not found", id)
	}

	if txn.Entries, err = r.entries(ctx, id); err != nil {
		return domain.Transaction{}, err
	}

	var c domain.Commission
	err = r.db.QueryRowContext(ctx,
		`SELECT id, agent_id, transaction_id, kind, amount, created_at FROM commissions WHERE transaction_id = $1`, id,
	).Scan(&c.ID, &c.AgentID, &c.TransactionID, &c.Kind, &c.Amount, &c.CreatedAt)
	switch {
	case err == nil:
		txn.Commission = &c
	case err != sql.ErrNoRows:
		return domain.Transaction{}, mapError(err, "unable to read commission for %s", id)
	}

	var f domain.FloatEntry
	err = r.db.QueryRowContext(ctx,
		`SELECT agent_id, transaction_id, kind, amount, balance_before, balance_after, created_at FROM float_entries WHERE transaction_id = $1`, id,
	).Scan(&f.AgentID, &f.TransactionID, &f.Kind, &f.Amount, &f.BalanceBefore, &f.BalanceAfter, &f.CreatedAt)
	switch {
	case err == nil:
		txn.FloatEntry = &f
	case err != sql.ErrNoRows:
		return domain.Transaction{}, mapError(err, "unable to read float entry for %s", id)
	}

	return txn, nil
}

func (r *TransactionRepository) entries(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	const query = `
SELECT transaction_id, account_type, account_id, delta, balance_after, created_at
FROM ledger_entries
WHERE transaction_id = $1
ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, mapError(err, "unable to read ledger entries for %s", transactionID)
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.TransactionID, &e.AccountType, &e.AccountID, &e.Delta, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, mapError(err, "unable to read ledger entries for %s", transactionID)
		}
		out = append(out, e)
	}
	return out, mapError(rows.Err(), "unable to read ledger entries for %s", transactionID)
}

// ListByWallet returns the newest transactions touching the wallet first.
// Ledger entries are not loaded; party snapshots are.
func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID string, limit int) ([]domain.Transaction, error) {
	query := `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id IN (
	SELECT transaction_id FROM ledger_entries
	WHERE account_type = 'WALLET' AND account_id = $1
)
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, walletID, limit)
	if err != nil {
		return nil, mapError(err, "unable to read statement")
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, mapError(err, "unable to read statement")
		}
		out = append(out, txn)
	}
	return out, mapError(rows.Err(), "unable to read statement")
}

type ChargeBandRepository struct {
	db *sql.DB
}

var _ repo_interfaces.ChargeBandRepository = (*ChargeBandRepository)(nil)

func NewChargeBandRepository(db *sql.DB) *ChargeBandRepository {
	return &ChargeBandRepository{db: db}
}

func (r *ChargeBandRepository) ListActive(ctx context.Context) ([]domain.ChargeBand, error) {
	const query = `
SELECT id, kind, min_amount, max_amount, fee, is_active
FROM charge_bands
WHERE is_active
ORDER BY kind, min_amount`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "unable to read charge bands")
	}
	defer rows.Close()

	var out []domain.ChargeBand
	for rows.Next() {
		var b domain.ChargeBand
		if err := rows.Scan(&b.ID, &b.Kind, &b.MinAmount, &b.MaxAmount, &b.Fee, &b.IsActive); err != nil {
			return nil, mapError(err, "unable to read charge bands")
		}
		out = append(out, b)
	}
	return out, mapError(rows.Err(), "unable to read charge bands")
}
