package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

// Store is an in-process ledger used for local runs and tests. Rows are
// guarded by per-key locks held for the life of a unit; unit writes are
// staged and applied under the store mutex on commit.
type Store struct {
	mu sync.RWMutex

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	wallets      map[string]domain.Wallet
	pins         map[string]string
	agents       map[string]domain.Agent
	merchants    map[string]domain.Merchant
	system       map[domain.SystemAccountCode]domain.SystemAccount
	transactions map[string]domain.Transaction
	requestIDs   map[requestKey]string
	walletTxns   map[string][]string
	floatEntries map[string][]domain.FloatEntry
	commissions  map[string][]domain.Commission
	bands        []domain.ChargeBand
	products     map[string]domain.LoanProduct
	loans        map[string]domain.Loan
	repayments   map[string][]domain.LoanRepayment

	now func() time.Time
}

var _ repo_interfaces.LedgerStore = (*Store)(nil)

// requestKey scopes a client request id to the caller that sent it.
type requestKey struct {
	initiatorID string
	requestID   string
}

func requestKeyOf(txn domain.Transaction) requestKey {
	return requestKey{initiatorID: txn.InitiatorID, requestID: txn.RequestID}
}

func NewStore() *Store {
	s := &Store{
		locks:        make(map[string]chan struct{}),
		wallets:      make(map[string]domain.Wallet),
		pins:         make(map[string]string),
		agents:       make(map[string]domain.Agent),
		merchants:    make(map[string]domain.Merchant),
		system:       make(map[domain.SystemAccountCode]domain.SystemAccount),
		transactions: make(map[string]domain.Transaction),
		requestIDs:   make(map[requestKey]string),
		walletTxns:   make(map[string][]string),
		floatEntries: make(map[string][]domain.FloatEntry),
		commissions:  make(map[string][]domain.Commission),
		products:     make(map[string]domain.LoanProduct),
		loans:        make(map[string]domain.Loan),
		repayments:   make(map[string][]domain.LoanRepayment),
		now:          time.Now,
	}
	for _, code := range []domain.SystemAccountCode{
		domain.SystemFeeRevenue, domain.SystemCashClearing, domain.SystemAirtimeSettlement, domain.SystemLoanBook,
	} {
		s.system[code] = domain.SystemAccount{Code: code, Balance: decimal.Zero}
	}
	return s
}

func (s *Store) AddWallet(w domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.now()
	}
	w.UpdatedAt = w.CreatedAt
	s.wallets[w.ID] = w
}

func (s *Store) AddAgent(a domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
}

func (s *Store) AddMerchant(m domain.Merchant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchants[m.ID] = m
}

func (s *Store) SetChargeBands(bands []domain.ChargeBand) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bands = append([]domain.ChargeBand(nil), bands...)
}

func (s *Store) AddLoanProduct(p domain.LoanProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// AddLoan stores a loan as-is, bypassing the lifecycle. Fixture use only.
func (s *Store) AddLoan(l domain.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans[l.ID] = l
}

func (s *Store) SystemAccount(code domain.SystemAccountCode) domain.SystemAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system[code]
}

func (s *Store) Agent(agentID string) (domain.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	return a, ok
}

// CommittedTransactions returns every committed transaction ordered by id.
func (s *Store) CommittedTransactions() []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) WithinUnit(ctx context.Context, fn func(ctx context.Context, unit repo_interfaces.LedgerUnit) error) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.KindPersistenceFailure, err, "ledger unit not started")
	}

	u := newUnit(s)
	defer u.release()

	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.KindPersistenceFailure, err, "ledger unit abandoned before commit")
	}
	return s.commit(u)
}

func (s *Store) lockFor(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	return ch
}

func (s *Store) commit(u *unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, txn := range u.txns {
		if _, exists := s.transactions[txn.ID]; exists {
			return domain.NewError(domain.KindDuplicateTransaction, "transaction %s already exists", txn.ID)
		}
		if txn.RequestID != "" {
			if _, exists := s.requestIDs[requestKeyOf(txn)]; exists {
				return domain.NewError(domain.KindDuplicateTransaction, "request %s was already processed", txn.RequestID)
			}
		}
	}
	for id := range u.dirtyLoans {
		loan := u.loans[id]
		if !loan.Status.Outstanding() {
			continue
		}
		for _, other := range s.loans {
			if other.ID != loan.ID && other.BorrowerWalletID == loan.BorrowerWalletID && other.Status.Outstanding() {
				return domain.NewError(domain.KindInvalidState, "wallet %s already has outstanding loan %s", loan.BorrowerWalletID, other.ID)
			}
		}
	}

	now := s.now()
	for id := range u.dirtyWallets {
		w := u.wallets[id]
		w.UpdatedAt = now
		s.wallets[id] = w
	}
	for id := range u.dirtyAgents {
		a := u.agents[id]
		a.UpdatedAt = now
		s.agents[id] = a
	}
	for code := range u.dirtySystem {
		acc := u.system[code]
		acc.UpdatedAt = now
		s.system[code] = acc
	}
	for _, txn := range u.txns {
		s.transactions[txn.ID] = txn
		if txn.RequestID != "" {
			s.requestIDs[requestKeyOf(txn)] = txn.ID
		}
		for _, walletID := range walletsOf(txn) {
			s.walletTxns[walletID] = append(s.walletTxns[walletID], txn.ID)
		}
		if txn.FloatEntry != nil {
			s.floatEntries[txn.FloatEntry.AgentID] = append(s.floatEntries[txn.FloatEntry.AgentID], *txn.FloatEntry)
		}
		if txn.Commission != nil {
			s.commissions[txn.Commission.AgentID] = append(s.commissions[txn.Commission.AgentID], *txn.Commission)
		}
	}
	for id := range u.dirtyLoans {
		loan := u.loans[id]
		loan.UpdatedAt = now
		s.loans[id] = loan
	}
	for _, r := range u.repayments {
		s.repayments[r.LoanID] = append(s.repayments[r.LoanID], r)
	}
	return nil
}

func walletsOf(txn domain.Transaction) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, e := range txn.Entries {
		if e.AccountType != domain.AccountTypeWallet {
			continue
		}
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}
		out = append(out, e.AccountID)
	}
	return out
}
