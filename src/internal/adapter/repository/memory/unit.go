package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

const (
	classLoan = iota
	classWallet
	classAgent
	classSystem
)

var classPrefix = map[int]string{
	classLoan:   "loan:",
	classWallet: "wallet:",
	classAgent:  "agent:",
	classSystem: "system:",
}

type unit struct {
	store *Store

	held     map[string]struct{}
	acquired []chan struct{}
	rank     int
	maxKey   map[int]string

	wallets map[string]domain.Wallet
	agents  map[string]domain.Agent
	system  map[domain.SystemAccountCode]domain.SystemAccount
	loans   map[string]domain.Loan

	dirtyWallets map[string]struct{}
	dirtyAgents  map[string]struct{}
	dirtySystem  map[domain.SystemAccountCode]struct{}
	dirtyLoans   map[string]struct{}

	txns       []domain.Transaction
	repayments []domain.LoanRepayment
}

func newUnit(s *Store) *unit {
	return &unit{
		store:        s,
		held:         make(map[string]struct{}),
		rank:         -1,
		maxKey:       make(map[int]string),
		wallets:      make(map[string]domain.Wallet),
		agents:       make(map[string]domain.Agent),
		system:       make(map[domain.SystemAccountCode]domain.SystemAccount),
		loans:        make(map[string]domain.Loan),
		dirtyWallets: make(map[string]struct{}),
		dirtyAgents:  make(map[string]struct{}),
		dirtySystem:  make(map[domain.SystemAccountCode]struct{}),
		dirtyLoans:   make(map[string]struct{}),
	}
}

func (u *unit) release() {
	for i := len(u.acquired) - 1; i >= 0; i-- {
		<-u.acquired[i]
	}
	u.acquired = nil
}

func (u *unit) holds(class int, id string) bool {
	_, ok := u.held[classPrefix[class]+id]
	return ok
}

// acquire locks ids of one class in sorted order, skipping ids already held.
// Taking a new lock of a lower class, or a lower key within the current
// class, is refused since it could deadlock against another unit.
func (u *unit) acquire(ctx context.Context, class int, ids []string) error {
	fresh := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || u.holds(class, id) {
			continue
		}
		seen[id] = struct{}{}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return nil
	}
	sort.Strings(fresh)

	if class < u.rank || (class == u.rank && fresh[0] <= u.maxKey[class]) {
		return domain.NewError(domain.KindPersistenceFailure, "lock order violation on %s%s", classPrefix[class], fresh[0])
	}

	for _, id := range fresh {
		key := classPrefix[class] + id
		ch := u.store.lockFor(key)
		select {
		case ch <- struct{}{}:
		case <-ctx.Done():
			return domain.WrapError(domain.KindPersistenceFailure, ctx.Err(), "timed out waiting for %s", key)
		}
		u.acquired = append(u.acquired, ch)
		u.held[key] = struct{}{}
	}

	u.rank = class
	u.maxKey[class] = fresh[len(fresh)-1]
	return nil
}

func (u *unit) LockLoan(ctx context.Context, loanID string) (domain.Loan, error) {
	if loan, ok := u.loans[loanID]; ok && u.holds(classLoan, loanID) {
		return loan, nil
	}
	if err := u.acquire(ctx, classLoan, []string{loanID}); err != nil {
		return domain.Loan{}, err
	}

	u.store.mu.RLock()
	loan, ok := u.store.loans[loanID]
	u.store.mu.RUnlock()
	if !ok {
		return domain.Loan{}, domain.NewError(domain.KindNotFound, "loan %s not found", loanID)
	}
	u.loans[loanID] = loan
	return loan, nil
}

func (u *unit) LockWallets(ctx context.Context, walletIDs ...string) (map[string]domain.Wallet, error) {
	if err := u.acquire(ctx, classWallet, walletIDs); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Wallet, len(walletIDs))
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for _, id := range walletIDs {
		if w, ok := u.wallets[id]; ok {
			out[id] = w
			continue
		}
		w, ok := u.store.wallets[id]
		if !ok {
			return nil, domain.NewError(domain.KindNotFound, "wallet %s not found", id)
		}
		u.wallets[id] = w
		out[id] = w
	}
	return out, nil
}

func (u *unit) LockAgents(ctx context.Context, agentIDs ...string) (map[string]domain.Agent, error) {
	if err := u.acquire(ctx, classAgent, agentIDs); err != nil {
		return nil, err
	}

	out := make(map[string]domain.Agent, len(agentIDs))
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for _, id := range agentIDs {
		if a, ok := u.agents[id]; ok {
			out[id] = a
			continue
		}
		a, ok := u.store.agents[id]
		if !ok {
			return nil, domain.NewError(domain.KindNotFound, "agent %s not found", id)
		}
		u.agents[id] = a
		out[id] = a
	}
	return out, nil
}

func (u *unit) LockSystemAccounts(ctx context.Context, codes ...domain.SystemAccountCode) (map[domain.SystemAccountCode]domain.SystemAccount, error) {
	ids := make([]string, len(codes))
	for i, c := range codes {
		ids[i] = string(c)
	}
	if err := u.acquire(ctx, classSystem, ids); err != nil {
		return nil, err
	}

	out := make(map[domain.SystemAccountCode]domain.SystemAccount, len(codes))
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for _, code := range codes {
		if acc, ok := u.system[code]; ok {
			out[code] = acc
			continue
		}
		acc, ok := u.store.system[code]
		if !ok {
			return nil, domain.NewError(domain.KindNotFound, "system account %s not found", code)
		}
		u.system[code] = acc
		out[code] = acc
	}
	return out, nil
}

func (u *unit) SetWalletBalance(_ context.Context, walletID string, balance decimal.Decimal) error {
	w, ok := u.wallets[walletID]
	if !ok || !u.holds(classWallet, walletID) {
		return domain.NewError(domain.KindPersistenceFailure, "wallet %s is not locked by this unit", walletID)
	}
	if balance.IsNegative() {
		return domain.NewError(domain.KindInsufficientFunds, "wallet %s balance cannot go negative", walletID)
	}
	w.Balance = balance
	u.wallets[walletID] = w
	u.dirtyWallets[walletID] = struct{}{}
	return nil
}

func (u *unit) SetAgentFloat(_ context.Context, agentID string, balance decimal.Decimal) error {
	a, ok := u.agents[agentID]
	if !ok || !u.holds(classAgent, agentID) {
		return domain.NewError(domain.KindPersistenceFailure, "agent %s is not locked by this unit", agentID)
	}
	if balance.IsNegative() {
		return domain.NewError(domain.KindInsufficientFunds, "agent %s float cannot go negative", agentID)
	}
	a.FloatBalance = balance
	u.agents[agentID] = a
	u.dirtyAgents[agentID] = struct{}{}
	return nil
}

func (u *unit) SetSystemBalance(_ context.Context, code domain.SystemAccountCode, balance decimal.Decimal) error {
	acc, ok := u.system[code]
	if !ok || !u.holds(classSystem, string(code)) {
		return domain.NewError(domain.KindPersistenceFailure, "system account %s is not locked by this unit", code)
	}
	acc.Balance = balance
	u.system[code] = acc
	u.dirtySystem[code] = struct{}{}
	return nil
}

func (u *unit) RequestSeen(_ context.Context, initiatorID, requestID string) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	key := requestKey{initiatorID: initiatorID, requestID: requestID}
	for _, staged := range u.txns {
		if requestKeyOf(staged) == key {
			return true, nil
		}
	}
	u.store.mu.RLock()
	_, seen := u.store.requestIDs[key]
	u.store.mu.RUnlock()
	return seen, nil
}

func (u *unit) InsertTransaction(_ context.Context, txn domain.Transaction) error {
	for _, staged := range u.txns {
		if staged.ID == txn.ID || (txn.RequestID != "" && requestKeyOf(staged) == requestKeyOf(txn)) {
			return domain.NewError(domain.KindDuplicateTransaction, "transaction %s already staged", txn.ID)
		}
	}

	u.store.mu.RLock()
	_, idTaken := u.store.transactions[txn.ID]
	_, requestTaken := u.store.requestIDs[requestKeyOf(txn)]
	u.store.mu.RUnlock()

	if idTaken {
		return domain.NewError(domain.KindDuplicateTransaction, "transaction %s already exists", txn.ID)
	}
	if txn.RequestID != "" && requestTaken {
		return domain.NewError(domain.KindDuplicateTransaction, "request %s was already processed", txn.RequestID)
	}

	u.txns = append(u.txns, txn)
	return nil
}

func (u *unit) SumWalletDebits(_ context.Context, walletID string, since time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	add := func(txn domain.Transaction) {
		if txn.CreatedAt.Before(since) {
			return
		}
		for _, e := range txn.Entries {
			if e.AccountType == domain.AccountTypeWallet && e.AccountID == walletID && e.Delta.IsNegative() {
				total = total.Sub(e.Delta)
			}
		}
	}

	u.store.mu.RLock()
	for _, id := range u.store.walletTxns[walletID] {
		add(u.store.transactions[id])
	}
	u.store.mu.RUnlock()

	for _, txn := range u.txns {
		add(txn)
	}
	return total, nil
}

func (u *unit) FindOutstandingLoan(_ context.Context, walletID string) (domain.Loan, bool, error) {
	for _, loan := range u.loans {
		if loan.BorrowerWalletID == walletID && loan.Status.Outstanding() {
			return loan, true, nil
		}
	}

	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	for id, loan := range u.store.loans {
		if _, staged := u.loans[id]; staged {
			continue
		}
		if loan.BorrowerWalletID == walletID && loan.Status.Outstanding() {
			return loan, true, nil
		}
	}
	return domain.Loan{}, false, nil
}

func (u *unit) InsertLoan(_ context.Context, loan domain.Loan) error {
	u.store.mu.RLock()
	_, exists := u.store.loans[loan.ID]
	u.store.mu.RUnlock()
	if _, staged := u.loans[loan.ID]; exists || staged {
		return domain.NewError(domain.KindDuplicateTransaction, "loan %s already exists", loan.ID)
	}
	u.loans[loan.ID] = loan
	u.dirtyLoans[loan.ID] = struct{}{}
	return nil
}

func (u *unit) UpdateLoan(_ context.Context, loan domain.Loan) error {
	_, dirty := u.dirtyLoans[loan.ID]
	if !dirty && !u.holds(classLoan, loan.ID) {
		return domain.NewError(domain.KindPersistenceFailure, "loan %s is not locked by this unit", loan.ID)
	}
	u.loans[loan.ID] = loan
	u.dirtyLoans[loan.ID] = struct{}{}
	return nil
}

func (u *unit) InsertLoanRepayment(_ context.Context, repayment domain.LoanRepayment) error {
	u.repayments = append(u.repayments, repayment)
	return nil
}
