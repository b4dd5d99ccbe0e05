package main

import (
	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/memory"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

// seedMemory loads the default tariff, the loan products and a few local
// accounts so the in-memory server can be exercised with issued tokens.
func seedMemory(store *memory.Store) {
	d := decimal.RequireFromString

	var bands []domain.ChargeBand
	for i, b := range []struct {
		kind     domain.TransactionKind
		min, max string
		fee      string
	}{
		{domain.KindSendMoney, "1", "100", "0"},
		{domain.KindSendMoney, "100.01", "500", "7"},
		{domain.KindSendMoney, "500.01", "1000", "13"},
		{domain.KindSendMoney, "1000.01", "150000", "23"},
		{domain.KindWithdrawal, "50", "100", "11"},
		{domain.KindWithdrawal, "100.01", "2500", "29"},
		{domain.KindWithdrawal, "2500.01", "150000", "69"},
		{domain.KindPaybill, "1", "100", "0"},
		{domain.KindPaybill, "100.01", "150000", "5"},
	} {
		bands = append(bands, domain.ChargeBand{
			ID: int64(i + 1), Kind: b.kind, MinAmount: d(b.min), MaxAmount: d(b.max), Fee: d(b.fee), IsActive: true,
		})
	}
	store.SetChargeBands(bands)

	store.AddLoanProduct(domain.LoanProduct{
		ID: "LP-30", Name: "Salary Advance 30", MinAmount: d("1000"), MaxAmount: d("5000"),
		InterestRate: d("10"), DurationDays: 30, FacilitationFee: d("50"), IsActive: true,
	})
	store.AddLoanProduct(domain.LoanProduct{
		ID: "LP-90", Name: "Business Boost 90", MinAmount: d("5000"), MaxAmount: d("50000"),
		InterestRate: d("14"), DurationDays: 90, FacilitationFee: d("250"), IsActive: true,
	})

	for _, w := range []domain.Wallet{
		{ID: "W-1001", OwnerID: "customer-1", PhoneNumber: "254711000001", Balance: d("5000")},
		{ID: "W-1002", OwnerID: "customer-2", PhoneNumber: "254711000002", Balance: d("5000")},
		{ID: "W-2001", OwnerID: "agent-1", PhoneNumber: "254722000001", Balance: decimal.Zero},
		{ID: "W-3001", OwnerID: "merchant-1", PhoneNumber: "254733000001", Balance: decimal.Zero},
	} {
		w.Currency = "KES"
		w.IsActive = true
		w.DailyLimit = d("150000")
		w.MonthlyLimit = d("500000")
		store.AddWallet(w)
	}
	store.AddAgent(domain.Agent{
		ID: "AG-2001", AgentNumber: "200200", OwnerID: "agent-1", BusinessName: "Local Agent",
		FloatBalance: d("50000"), CommissionRate: d("0.5"), IsActive: true,
	})
	store.AddMerchant(domain.Merchant{
		ID: "MR-3001", BusinessNumber: "300300", BusinessName: "Local Utility",
		Type: domain.MerchantTypePaybill, WalletID: "W-3001", IsActive: true,
	})
	store.AddMerchant(domain.Merchant{
		ID: "MR-3002", BusinessNumber: "300400", BusinessName: "Local Till",
		Type: domain.MerchantTypeTill, WalletID: "W-3001", IsActive: true,
	})
}
