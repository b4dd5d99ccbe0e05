package implementations

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

// LedgerStore runs each unit in one READ COMMITTED database transaction.
// Rows are locked with SELECT ... FOR UPDATE in id order and stay locked
// until commit or rollback.
type LedgerStore struct {
	db *sql.DB
}

var _ repo_interfaces.LedgerStore = (*LedgerStore)(nil)

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) WithinUnit(ctx context.Context, fn func(ctx context.Context, unit repo_interfaces.LedgerUnit) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		logger.Error("ledger store begin tx failed", err, nil)
		return mapError(err, "unable to start ledger unit")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, newPGUnit(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		logger.Error("ledger store commit tx failed", err, nil)
		return mapError(err, "unable to commit ledger unit")
	}
	return nil
}

type pgUnit struct {
	tx querier

	loans   map[string]domain.Loan
	wallets map[string]domain.Wallet
	agents  map[string]domain.Agent
	system  map[domain.SystemAccountCode]domain.SystemAccount
}

func newPGUnit(tx querier) *pgUnit {
	return &pgUnit{
		tx:      tx,
		loans:   make(map[string]domain.Loan),
		wallets: make(map[string]domain.Wallet),
		agents:  make(map[string]domain.Agent),
		system:  make(map[domain.SystemAccountCode]domain.SystemAccount),
	}
}

// missing returns the sorted, de-duplicated ids not yet locked by the unit.
func missing(ids []string, held func(string) bool) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || held(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (u *pgUnit) LockLoan(ctx context.Context, loanID string) (domain.Loan, error) {
	if l, ok := u.loans[loanID]; ok {
		return l, nil
	}
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	l, err := scanLoan(u.tx.QueryRowContext(ctx, query, loanID))
	if err != nil {
		return domain.Loan{}, mapError(err, "loan %s not found", loanID)
	}
	u.loans[loanID] = l
	return l, nil
}

func (u *pgUnit) LockWallets(ctx context.Context, walletIDs ...string) (map[string]domain.Wallet, error) {
	fresh := missing(walletIDs, func(id string) bool { _, ok := u.wallets[id]; return ok })
	if len(fresh) > 0 {
		query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = ANY($1) ORDER BY id FOR UPDATE`
		rows, err := u.tx.QueryContext(ctx, query, pq.Array(fresh))
		if err != nil {
			return nil, mapError(err, "unable to lock wallets")
		}
		for rows.Next() {
			w, err := scanWallet(rows)
			if err != nil {
				rows.Close()
				return nil, mapError(err, "unable to lock wallets")
			}
			u.wallets[w.ID] = w
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, mapError(err, "unable to lock wallets")
		}
	}

	out := make(map[string]domain.Wallet, len(walletIDs))
	for _, id := range walletIDs {
		w, ok := u.wallets[id]
		if !ok {
			return nil, domain.NewError(domain.KindNotFound, "wallet %s not found", id)
		}
		out[id] = w
	}
	return out, nil
}

func (u *pgUnit) LockAgents(ctx context.Context, agentIDs ...string) (map[string]domain.Agent, error) {
	fresh := missing(agentIDs, func(id string) bool { _, ok := u.agents[id]; return ok })
	if len(fresh) > 0 {
		query := `SELECT ` + agentColumns + ` FROM agents WHERE id = ANY($1) ORDER BY id FOR UPDATE`
		rows, err := u.tx.QueryContext(ctx, query, pq.Array(fresh))
		if err != nil {
			return nil, mapError(err, "unable to lock agents")
		}
		for rows.Next() {
			a, err := scanAgent(rows)
			if err != nil {
				rows.Close()
				return nil, mapError(err, "unable to lock agents")
			}
			u.agents[a.ID] = a
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, mapError(err, "unable to lock agents")
		}
	}

	out := make(map[string]domain.Agent, len(agentIDs))
	for _, id := range agentIDs {
		a, ok := u.agents[id]
		if !ok {
			return nil, domain.NewError(domain.KindNotFound, "agent %s not found", id)
		}
		out[id] = a
	}
	return out, nil
}

func (u *pgUnit) LockSystemAccounts(ctx context.Context, codes ...domain.SystemAccountCode) (map[domain.SystemAccountCode]domain.SystemAccount, error) {
	ids := make([]string, len(codes))
	for i, c := range codes {
		ids[i] = string(c)
	}
	fresh := missing(ids, func(id string) bool { _, ok := u.system[domain.SystemAccountCode(id)]; return ok })
	if len(fresh) > 0 {
		const query = `SELECT code, balance, updated_at FROM system_accounts WHERE code = ANY($1) ORDER BY code FOR UPDATE`
		rows, err := u.tx.QueryContext(ctx, query, pq.Array(fresh))
		if err != nil {
			return nil, mapError(err, "unable to lock system accounts")
		}
		for rows.Next() {
			var acc domain.SystemAccount
			if err := rows.Scan(&acc.Code, &acc.Balance, &acc.UpdatedAt); err != nil {
				rows.Close()
				return nil, mapError(err, "unable to lock system accounts")
			}
			u.system[acc.Code] = acc
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, mapError(err, "unable to lock system accounts")
		}
	}

	out := make(map[domain.SystemAccountCode]domain.SystemAccount, len(codes))
	for _, code := range codes {
		acc, ok := u.system[code]
		if !ok {
			return nil, domain.NewError(domain.KindNotFound, "system account %s not found", code)
		}
		out[code] = acc
	}
	return out, nil
}

func (u *pgUnit) SetWalletBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	w, ok := u.wallets[walletID]
	if !ok {
		return domain.NewError(domain.KindPersistenceFailure, "wallet %s is not locked by this unit", walletID)
	}
	if _, err := u.tx.ExecContext(ctx, `UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`, walletID, balance); err != nil {
		return mapError(err, "unable to update wallet %s", walletID)
	}
	w.Balance = balance
	u.wallets[walletID] = w
	return nil
}

func (u *pgUnit) SetAgentFloat(ctx context.Context, agentID string, balance decimal.Decimal) error {
	a, ok := u.agents[agentID]
	if !ok {
		return domain.NewError(domain.KindPersistenceFailure, "agent %s is not locked by this unit", agentID)
	}
	if _, err := u.tx.ExecContext(ctx, `UPDATE agents SET float_balance = $2, updated_at = NOW() WHERE id = $1`, agentID, balance); err != nil {
		return mapError(err, "unable to update agent %s float", agentID)
	}
	a.FloatBalance = balance
	u.agents[agentID] = a
	return nil
}

func (u *pgUnit) SetSystemBalance(ctx context.Context, code domain.SystemAccountCode, balance decimal.Decimal) error {
	acc, ok := u.system[code]
	if !ok {
		return domain.NewError(domain.KindPersistenceFailure, "system account %s is not locked by this unit", code)
	}
	if _, err := u.tx.ExecContext(ctx, `UPDATE system_accounts SET balance = $2, updated_at = NOW() WHERE code = $1`, string(code), balance); err != nil {
		return mapError(err, "unable to update system account %s", code)
	}
	acc.Balance = balance
	u.system[code] = acc
	return nil
}

func (u *pgUnit) RequestSeen(ctx context.Context, initiatorID, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	const query = `SELECT EXISTS (SELECT 1 FROM transactions WHERE initiator_id = $1 AND request_id = $2)`
	var seen bool
	if err := u.tx.QueryRowContext(ctx, query, initiatorID, requestID).Scan(&seen); err != nil {
		return false, mapError(err, "unable to check request %s", requestID)
	}
	return seen, nil
}

func (u *pgUnit) InsertTransaction(ctx context.Context, txn domain.Transaction) error {
	parties, err := json.Marshal(txn.Parties)
	if err != nil {
		return domain.WrapError(domain.KindPersistenceFailure, err, "unable to encode parties")
	}

	const query = `
INSERT INTO transactions (
	id, request_id, initiator_id, kind, status, amount, fee, total_amount, currency,
	source_wallet_id, destination_wallet_id, agent_id, merchant_id, loan_id,
	account_reference, recipient_phone, network, narration, parties, created_at, completed_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
)`
	_, err = u.tx.ExecContext(ctx, query,
		txn.ID,
		nullString(txn.RequestID),
		txn.InitiatorID,
		string(txn.Kind),
		string(txn.Status),
		txn.Amount,
		txn.Fee,
		txn.TotalAmount,
		txn.Currency,
		nullString(txn.SourceWalletID),
		nullString(txn.DestinationWalletID),
		nullString(txn.AgentID),
		nullString(txn.MerchantID),
		nullString(txn.LoanID),
		txn.AccountReference,
		txn.RecipientPhone,
		txn.Network,
		txn.Narration,
		parties,
		txn.CreatedAt,
		txn.CompletedAt,
	)
	if err != nil {
		logger.Error("ledger store insert transaction failed", err, logger.Fields{
			"transactionId": txn.ID,
			"requestId":     txn.RequestID,
			"initiatorId":   txn.InitiatorID,
		})
		return mapError(err, "transaction %s or request %s already exists", txn.ID, txn.RequestID)
	}

	for _, e := range txn.Entries {
		if _, err := u.tx.ExecContext(ctx, `
INSERT INTO ledger_entries (transaction_id, account_type, account_id, delta, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			e.TransactionID, string(e.AccountType), e.AccountID, e.Delta, e.BalanceAfter, e.CreatedAt,
		); err != nil {
			return mapError(err, "unable to write ledger entry for %s", txn.ID)
		}
	}

	if c := txn.Commission; c != nil {
		if _, err := u.tx.ExecContext(ctx, `
INSERT INTO commissions (id, agent_id, transaction_id, kind, amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.AgentID, c.TransactionID, string(c.Kind), c.Amount, c.CreatedAt,
		); err != nil {
			return mapError(err, "commission for %s already exists", txn.ID)
		}
	}

	if f := txn.FloatEntry; f != nil {
		if _, err := u.tx.ExecContext(ctx, `
INSERT INTO float_entries (agent_id, transaction_id, kind, amount, balance_before, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.AgentID, f.TransactionID, string(f.Kind), f.Amount, f.BalanceBefore, f.BalanceAfter, f.CreatedAt,
		); err != nil {
			return mapError(err, "unable to write float entry for %s", txn.ID)
		}
	}
	return nil
}

func (u *pgUnit) SumWalletDebits(ctx context.Context, walletID string, since time.Time) (decimal.Decimal, error) {
	const query = `
SELECT COALESCE(SUM(-delta), 0)
FROM ledger_entries
WHERE account_type = 'WALLET'
  AND account_id = $1
  AND delta < 0
  AND created_at >= $2`

	var total decimal.Decimal
	if err := u.tx.QueryRowContext(ctx, query, walletID, since).Scan(&total); err != nil {
		return decimal.Zero, mapError(err, "unable to read wallet usage")
	}
	return total, nil
}

func (u *pgUnit) FindOutstandingLoan(ctx context.Context, walletID string) (domain.Loan, bool, error) {
	query := `
SELECT ` + loanColumns + `
FROM loans
WHERE borrower_wallet_id = $1
  AND status IN ('APPROVED', 'DISBURSED', 'ACTIVE')
LIMIT 1`

	l, err := scanLoan(u.tx.QueryRowContext(ctx, query, walletID))
	if err == sql.ErrNoRows {
		return domain.Loan{}, false, nil
	}
	if err != nil {
		return domain.Loan{}, false, mapError(err, "unable to read outstanding loan")
	}
	return l, true, nil
}

func (u *pgUnit) InsertLoan(ctx context.Context, l domain.Loan) error {
	const query = `
INSERT INTO loans (
	id, borrower_wallet_id, borrower_owner_id, product_id, principal, interest_amount,
	facilitation_fee, total_amount, amount_paid, balance, status, purpose, applied_at, due_date, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)`
	_, err := u.tx.ExecContext(ctx, query,
		l.ID, l.BorrowerWalletID, l.BorrowerOwnerID, l.ProductID, l.Principal, l.InterestAmount,
		l.FacilitationFee, l.TotalAmount, l.AmountPaid, l.Balance, string(l.Status), l.Purpose, l.AppliedAt, l.DueDate, l.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "loan %s already exists", l.ID)
	}
	u.loans[l.ID] = l
	return nil
}

func (u *pgUnit) UpdateLoan(ctx context.Context, l domain.Loan) error {
	if _, ok := u.loans[l.ID]; !ok {
		return domain.NewError(domain.KindPersistenceFailure, "loan %s is not locked by this unit", l.ID)
	}

	const query = `
UPDATE loans
SET amount_paid = $2,
    balance = $3,
    status = $4,
    due_date = $5,
    approved_at = $6,
    disbursed_at = $7,
    paid_at = $8,
    disbursement_txn_id = $9,
    updated_at = $10
WHERE id = $1`
	_, err := u.tx.ExecContext(ctx, query,
		l.ID, l.AmountPaid, l.Balance, string(l.Status), l.DueDate,
		l.ApprovedAt, l.DisbursedAt, l.PaidAt, nullString(l.DisbursementTxnID), l.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "unable to update loan %s", l.ID)
	}
	u.loans[l.ID] = l
	return nil
}

func (u *pgUnit) InsertLoanRepayment(ctx context.Context, p domain.LoanRepayment) error {
	const query = `
INSERT INTO loan_repayments (id, loan_id, transaction_id, amount, balance_before, balance_after, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := u.tx.ExecContext(ctx, query, p.ID, p.LoanID, p.TransactionID, p.Amount, p.BalanceBefore, p.BalanceAfter, p.CreatedAt); err != nil {
		return mapError(err, "unable to record repayment for loan %s", p.LoanID)
	}
	return nil
}
