package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

type WalletRepository struct{ s *Store }
type AgentRepository struct{ s *Store }
type MerchantRepository struct{ s *Store }
type TransactionRepository struct{ s *Store }
type ChargeBandRepository struct{ s *Store }
type LoanRepository struct{ s *Store }

var (
	_ repo_interfaces.WalletRepository      = WalletRepository{}
	_ repo_interfaces.AgentRepository       = AgentRepository{}
	_ repo_interfaces.MerchantRepository    = MerchantRepository{}
	_ repo_interfaces.TransactionRepository = TransactionRepository{}
	_ repo_interfaces.ChargeBandRepository  = ChargeBandRepository{}
	_ repo_interfaces.LoanRepository        = LoanRepository{}
)

func (s *Store) Wallets() WalletRepository { return WalletRepository{s} }
func (s *Store) Agents() AgentRepository { return AgentRepository{s} }
func (s *Store) Merchants() MerchantRepository { return MerchantRepository{s} }
func (s *Store) Transactions() TransactionRepository { return TransactionRepository{s} }
func (s *Store) ChargeBands() ChargeBandRepository { return ChargeBandRepository{s} }
func (s *Store) Loans() LoanRepository { return LoanRepository{s} }

func (r WalletRepository) GetByID(_ context.Context, walletID string) (domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.wallets[strings.TrimSpace(walletID)]
	if !ok {
		return domain.Wallet{}, domain.NewError(domain.KindNotFound, "wallet %s not found", walletID)
	}
	return w, nil
}

func (r WalletRepository) GetByOwner(_ context.Context, ownerID string) (domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.wallets {
		if w.OwnerID == ownerID {
			return w, nil
		}
	}
	return domain.Wallet{}, domain.NewError(domain.KindNotFound, "no wallet for owner %s", ownerID)
}

func (r WalletRepository) GetByPhone(_ context.Context, phoneNumber string) (domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.wallets {
		if w.PhoneNumber == phoneNumber {
			return w, nil
		}
	}
	return domain.Wallet{}, domain.NewError(domain.KindNotFound, "no wallet for phone %s", phoneNumber)
}

func (r WalletRepository) GetPinHash(_ context.Context, walletID string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if _, ok := r.s.wallets[walletID]; !ok {
		return "", domain.NewError(domain.KindNotFound, "wallet %s not found", walletID)
	}
	return r.s.pins[walletID], nil
}

func (r WalletRepository) SetPinHash(_ context.Context, walletID string, pinHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.wallets[walletID]; !ok {
		return domain.NewError(domain.KindNotFound, "wallet %s not found", walletID)
	}
	r.s.pins[walletID] = pinHash
	return nil
}

func (r AgentRepository) GetByNumber(_ context.Context, agentNumber string) (domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.agents {
		if a.AgentNumber == agentNumber {
			return a, nil
		}
	}
	return domain.Agent{}, domain.NewError(domain.KindNotFound, "agent %s not found", agentNumber)
}

func (r AgentRepository) ListFloatEntries(_ context.Context, agentID string, limit int) ([]domain.FloatEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	entries := r.s.floatEntries[agentID]
	out := make([]domain.FloatEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (r AgentRepository) ListCommissions(_ context.Context, agentID string, limit int) ([]domain.Commission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	earned := r.s.commissions[agentID]
	out := make([]domain.Commission, 0, len(earned))
	for i := len(earned) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, earned[i])
	}
	return out, nil
}

func (r AgentRepository) TotalCommission(_ context.Context, agentID string) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := decimal.Zero
	for _, c := range r.s.commissions[agentID] {
		total = total.Add(c.Amount)
	}
	return total, nil
}

func (r MerchantRepository) GetByBusinessNumber(_ context.Context, businessNumber string) (domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.merchants {
		if m.BusinessNumber == businessNumber {
			return m, nil
		}
	}
	return domain.Merchant{}, domain.NewError(domain.KindNotFound, "merchant %s not found", businessNumber)
}

func (r TransactionRepository) GetByID(_ context.Context, transactionID string) (domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	txn, ok := r.s.transactions[transactionID]
	if !ok {
		return domain.Transaction{}, domain.NewError(domain.KindNotFound, "transaction %s not found", transactionID)
	}
	return txn, nil
}

// ListByWallet returns the newest transactions touching the wallet first.
func (r TransactionRepository) ListByWallet(_ context.Context, walletID string, limit int) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := r.s.walletTxns[walletID]
	out := make([]domain.Transaction, 0, len(ids))
	for i := len(ids) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.s.transactions[ids[i]])
	}
	return out, nil
}

func (r ChargeBandRepository) ListActive(_ context.Context) ([]domain.ChargeBand, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.ChargeBand, 0, len(r.s.bands))
	for _, b := range r.s.bands {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r LoanRepository) GetProduct(_ context.Context, productID string) (domain.LoanProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[productID]
	if !ok {
		return domain.LoanProduct{}, domain.NewError(domain.KindNotFound, "loan product %s not found", productID)
	}
	return p, nil
}

func (r LoanRepository) ListProducts(_ context.Context) ([]domain.LoanProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]domain.LoanProduct, 0, len(r.s.products))
	for _, p := range r.s.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r LoanRepository) GetByID(_ context.Context, loanID string) (domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.loans[loanID]
	if !ok {
		return domain.Loan{}, domain.NewError(domain.KindNotFound, "loan %s not found", loanID)
	}
	return l, nil
}

func (r LoanRepository) ListRepayments(_ context.Context, loanID string) ([]domain.LoanRepayment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.LoanRepayment(nil), r.s.repayments[loanID]...), nil
}

func (r LoanRepository) ListOverdue(_ context.Context, asOf time.Time, limit int) ([]domain.Loan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Loan
	for _, l := range r.s.loans {
		if l.Overdue(asOf) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
