package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/memory"
	"github.com/steve-ongera/mpesa-ledger/src/internal/commons"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/services"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.TransactionEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.TransactionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []domain.TransactionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.TransactionEvent(nil), n.events...)
}

type harnessConfig struct {
	transfer          services.TransferOptions
	rejectOutOfBand   bool
	rejectOverpayment bool
	now               func() time.Time
}

type harness struct {
	store     *memory.Store
	charges   *services.ChargesService
	transfers *services.TransferService
	loans     *services.LoanService
	events    *recordingNotifier
}

// newHarness seeds a memory store with:
//
//	W-A  owner U-A   0711000001  1000.00
//	W-B  owner U-B   0711000002  1000.00
//	W-C  owner U-C   0711000003     0.00
//	W-AG owner U-AG  0711000009     0.00  (operates agent 100200, float 10000)
//	W-MR owner U-MR  0711000010     0.00  (paybill 400200, till 500300)
//	W-FEE owner U-FEE 0711000099    0.00
func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()

	cfg := harnessConfig{
		transfer: services.TransferOptions{
			UnitTimeout: 2 * time.Second,
			Currency:    "KES",
			MinAmount:   money("1"),
			MaxAmount:   money("150000"),
			Limits:      services.LimitPolicy{Mode: services.LimitModeOff},
			Now:         func() time.Time { return fixedNow },
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.now != nil {
		cfg.transfer.Now = cfg.now
	}

	store := memory.NewStore()
	for _, w := range []domain.Wallet{
		{ID: "W-A", OwnerID: "U-A", PhoneNumber: "0711000001", Balance: money("1000")},
		{ID: "W-B", OwnerID: "U-B", PhoneNumber: "0711000002", Balance: money("1000")},
		{ID: "W-C", OwnerID: "U-C", PhoneNumber: "0711000003", Balance: decimal.Zero},
		{ID: "W-AG", OwnerID: "U-AG", PhoneNumber: "0711000009", Balance: decimal.Zero},
		{ID: "W-MR", OwnerID: "U-MR", PhoneNumber: "0711000010", Balance: decimal.Zero},
		{ID: "W-FEE", OwnerID: "U-FEE", PhoneNumber: "0711000099", Balance: decimal.Zero},
	} {
		w.Currency = "KES"
		w.IsActive = true
		w.DailyLimit = money("150000")
		w.MonthlyLimit = money("500000")
		store.AddWallet(w)
	}
	store.AddAgent(domain.Agent{
		ID:             "AG-1",
		AgentNumber:    "100200",
		OwnerID:        "U-AG",
		BusinessName:   "Kamau Shop",
		FloatBalance:   money("10000"),
		CommissionRate: money("0.5"),
		IsActive:       true,
	})
	store.AddMerchant(domain.Merchant{ID: "MR-PB", BusinessNumber: "400200", BusinessName: "Power Co", Type: domain.MerchantTypePaybill, WalletID: "W-MR", IsActive: true})
	store.AddMerchant(domain.Merchant{ID: "MR-TL", BusinessNumber: "500300", BusinessName: "Corner Store", Type: domain.MerchantTypeTill, WalletID: "W-MR", IsActive: true})
	store.SetChargeBands([]domain.ChargeBand{
		{ID: 1, Kind: domain.KindSendMoney, MinAmount: money("1"), MaxAmount: money("99.99"), Fee: decimal.Zero, IsActive: true},
		{ID: 2, Kind: domain.KindSendMoney, MinAmount: money("100"), MaxAmount: money("500"), Fee: money("10"), IsActive: true},
		{ID: 3, Kind: domain.KindSendMoney, MinAmount: money("500.01"), MaxAmount: money("70000"), Fee: money("35"), IsActive: true},
		{ID: 4, Kind: domain.KindWithdrawal, MinAmount: money("50"), MaxAmount: money("2500"), Fee: money("30"), IsActive: true},
		{ID: 5, Kind: domain.KindPaybill, MinAmount: money("1"), MaxAmount: money("70000"), Fee: money("5"), IsActive: true},
	})
	store.AddLoanProduct(domain.LoanProduct{
		ID:              "LP-30",
		Name:            "Fuliza 30",
		MinAmount:       money("1000"),
		MaxAmount:       money("5000"),
		InterestRate:    money("10"),
		DurationDays:    30,
		FacilitationFee: money("50"),
		IsActive:        true,
	})

	charges := services.NewChargesService(store.ChargeBands(), cfg.rejectOutOfBand)
	_, err := charges.Reload(context.Background())
	require.NoError(t, err)

	events := &recordingNotifier{}
	ids := commons.NewIDGeneratorWith(func() time.Time { return fixedNow }, nil)
	transfers := services.NewTransferService(
		store,
		store.Wallets(),
		store.Agents(),
		store.Merchants(),
		store.Transactions(),
		charges,
		services.NewCommissionCalculator(services.DefaultWithdrawalCommissionShare),
		events,
		ids,
		cfg.transfer,
	)
	loans := services.NewLoanService(store, store.Loans(), store.Wallets(), transfers, ids, services.LoanOptions{
		RejectOverpayment: cfg.rejectOverpayment,
		UnitTimeout:       cfg.transfer.UnitTimeout,
		Now:               cfg.transfer.Now,
	})

	return &harness{
		store:     store,
		charges:   charges,
		transfers: transfers,
		loans:     loans,
		events:    events,
	}
}

func (h *harness) balance(t *testing.T, walletID string) decimal.Decimal {
	t.Helper()
	w, err := h.store.Wallets().GetByID(context.Background(), walletID)
	require.NoError(t, err)
	return w.Balance
}

func (h *harness) float(t *testing.T, agentID string) decimal.Decimal {
	t.Helper()
	a, ok := h.store.Agent(agentID)
	require.True(t, ok)
	return a.FloatBalance
}

func (h *harness) system(code domain.SystemAccountCode) decimal.Decimal {
	return h.store.SystemAccount(code).Balance
}

// ledgerTotal sums every wallet and system account. Transfers between them
// never change it.
func (h *harness) ledgerTotal(t *testing.T) decimal.Decimal {
	t.Helper()
	total := decimal.Zero
	for _, id := range []string{"W-A", "W-B", "W-C", "W-AG", "W-MR", "W-FEE"} {
		total = total.Add(h.balance(t, id))
	}
	for _, code := range []domain.SystemAccountCode{
		domain.SystemFeeRevenue, domain.SystemCashClearing, domain.SystemAirtimeSettlement, domain.SystemLoanBook,
	} {
		total = total.Add(h.system(code))
	}
	return total
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "error: %v", err)
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, money(want).Equal(got), "want %s got %s", want, got.String())
}
