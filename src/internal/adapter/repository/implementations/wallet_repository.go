package implementations

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

const walletColumns = `id, owner_id, phone_number, balance, currency, is_active, daily_limit, monthly_limit, created_at, updated_at`

type WalletRepository struct {
	db *sql.DB
}

var _ repo_interfaces.WalletRepository = (*WalletRepository)(nil)

func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func scanWallet(row rowScanner) (domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.PhoneNumber,
		&w.Balance,
		&w.Currency,
		&w.IsActive,
		&w.DailyLimit,
		&w.MonthlyLimit,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	return w, err
}

func (r *WalletRepository) getBy(ctx context.Context, column, value string) (domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE ` + column + ` = $1`
	w, err := scanWallet(r.db.QueryRowContext(ctx, query, strings.TrimSpace(value)))
	if err != nil {
		return domain.Wallet{}, mapError(err, "wallet with %s %s not found", strings.ReplaceAll(column, "_", " "), value)
	}
	return w, nil
}

func (r *WalletRepository) GetByID(ctx context.Context, walletID string) (domain.Wallet, error) {
	return r.getBy(ctx, "id", walletID)
}

func (r *WalletRepository) GetByOwner(ctx context.Context, ownerID string) (domain.Wallet, error) {
	return r.getBy(ctx, "owner_id", ownerID)
}

func (r *WalletRepository) GetByPhone(ctx context.Context, phoneNumber string) (domain.Wallet, error) {
	return r.getBy(ctx, "phone_number", phoneNumber)
}

func (r *WalletRepository) GetPinHash(ctx context.Context, walletID string) (string, error) {
	var hash sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT pin_hash FROM wallets WHERE id = $1`, walletID).Scan(&hash); err != nil {
		return "", mapError(err, "wallet %s not found", walletID)
	}
	return hash.String, nil
}

func (r *WalletRepository) SetPinHash(ctx context.Context, walletID string, pinHash string) error {
	const query = `
UPDATE wallets
SET pin_hash = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, walletID, pinHash)
	if err != nil {
		logger.Error("wallet repository set pin failed", err, logger.Fields{"walletId": walletID})
		return mapError(err, "unable to store pin")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return domain.NewError(domain.KindNotFound, "wallet %s not found", walletID)
	}
	return nil
}

const agentColumns = `id, agent_number, owner_id, business_name, float_balance, commission_rate, is_active, created_at, updated_at`

type AgentRepository struct {
	db *sql.DB
}

var _ repo_interfaces.AgentRepository = (*AgentRepository)(nil)

func NewAgentRepository(db *sql.DB) *AgentRepository {
	return &AgentRepository{db: db}
}

func scanAgent(row rowScanner) (domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(
		&a.ID,
		&a.AgentNumber,
		&a.OwnerID,
		&a.BusinessName,
		&a.FloatBalance,
		&a.CommissionRate,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

func (r *AgentRepository) GetByNumber(ctx context.Context, agentNumber string) (domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE agent_number = $1`
	a, err := scanAgent(r.db.QueryRowContext(ctx, query, strings.TrimSpace(agentNumber)))
	if err != nil {
		return domain.Agent{}, mapError(err, "agent %s not found", agentNumber)
	}
	return a, nil
}

func (r *AgentRepository) ListFloatEntries(ctx context.Context, agentID string, limit int) ([]domain.FloatEntry, error) {
	const query = `
SELECT agent_id, transaction_id, kind, amount, balance_before, balance_after, created_at
FROM float_entries
WHERE agent_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, mapError(err, "unable to read float history")
	}
	defer rows.Close()

	var out []domain.FloatEntry
	for rows.Next() {
		var e domain.FloatEntry
		if err := rows.Scan(&e.AgentID, &e.TransactionID, &e.Kind, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, mapError(err, "unable to read float history")
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "unable to read float history")
	}
	return out, nil
}

func (r *AgentRepository) ListCommissions(ctx context.Context, agentID string, limit int) ([]domain.Commission, error) {
	const query = `
SELECT id, agent_id, transaction_id, kind, amount, created_at
FROM commissions
WHERE agent_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, agentID, limit)
	if err != nil {
		return nil, mapError(err, "unable to read commissions")
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		var c domain.Commission
		if err := rows.Scan(&c.ID, &c.AgentID, &c.TransactionID, &c.Kind, &c.Amount, &c.CreatedAt); err != nil {
			return nil, mapError(err, "unable to read commissions")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "unable to read commissions")
	}
	return out, nil
}

func (r *AgentRepository) TotalCommission(ctx context.Context, agentID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM commissions WHERE agent_id = $1`, agentID).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err, "unable to total commissions")
	}
	return total, nil
}

type MerchantRepository struct {
	db *sql.DB
}

var _ repo_interfaces.MerchantRepository = (*MerchantRepository)(nil)

func NewMerchantRepository(db *sql.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) GetByBusinessNumber(ctx context.Context, businessNumber string) (domain.Merchant, error) {
	const query = `
SELECT id, business_number, business_name, merchant_type, wallet_id, is_active, created_at
FROM merchants
WHERE business_number = $1`

	var m domain.Merchant
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(businessNumber)).Scan(
		&m.ID,
		&m.BusinessNumber,
		&m.BusinessName,
		&m.Type,
		&m.WalletID,
		&m.IsActive,
		&m.CreatedAt,
	)
	if err != nil {
		return domain.Merchant{}, mapError(err, "merchant %s not found", businessNumber)
	}
	return m, nil
}
