package models

import (
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type SetPinRequest struct {
	PIN string `json:"pin"`
}

func (r SetPinRequest) Validate() error {
	var errs fieldErrors
	if len(r.PIN) != 4 || !digitsOnly(r.PIN) {
		errs.add("pin must be exactly 4 digits")
	}
	return errs.err()
}

type WalletResponse struct {
	WalletID     string `json:"walletId"`
	PhoneNumber  string `json:"phoneNumber"`
	Balance      string `json:"balance"`
	Currency     string `json:"currency"`
	IsActive     bool   `json:"isActive"`
	DailyLimit   string `json:"dailyLimit"`
	MonthlyLimit string `json:"monthlyLimit"`
}

func NewWalletResponse(w domain.Wallet) WalletResponse {
	return WalletResponse{
		WalletID:     w.ID,
		PhoneNumber:  w.PhoneNumber,
		Balance:      money(w.Balance),
		Currency:     w.Currency,
		IsActive:     w.IsActive,
		DailyLimit:   money(w.DailyLimit),
		MonthlyLimit: money(w.MonthlyLimit),
	}
}

// StatementLine is one transaction as seen from the statement's wallet.
type StatementLine struct {
	TransactionID string    `json:"transactionId"`
	Kind          string    `json:"kind"`
	Role          string    `json:"role"`
	Amount        string    `json:"amount"`
	Fee           string    `json:"fee"`
	BalanceAfter  string    `json:"balanceAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

type StatementResponse struct {
	Wallet       WalletResponse  `json:"wallet"`
	Transactions []StatementLine `json:"transactions"`
}

func NewStatementResponse(w domain.Wallet, txns []domain.Transaction) StatementResponse {
	out := StatementResponse{
		Wallet:       NewWalletResponse(w),
		Transactions: make([]StatementLine, 0, len(txns)),
	}
	for _, txn := range txns {
		line := StatementLine{
			TransactionID: txn.ID,
			Kind:          string(txn.Kind),
			Amount:        money(txn.Amount),
			Fee:           money(txn.Fee),
			CreatedAt:     txn.CreatedAt,
		}
		for _, p := range txn.Parties {
			if p.AccountType == domain.AccountTypeWallet && p.AccountID == w.ID {
				line.Role = string(p.Role)
				line.BalanceAfter = money(p.BalanceAfter)
				break
			}
		}
		out.Transactions = append(out.Transactions, line)
	}
	return out
}

type FloatEntryResponse struct {
	TransactionID string    `json:"transactionId"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balanceBefore"`
	BalanceAfter  string    `json:"balanceAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

type FloatHistoryResponse struct {
	AgentNumber  string               `json:"agentNumber"`
	BusinessName string               `json:"businessName"`
	FloatBalance string               `json:"floatBalance"`
	Entries      []FloatEntryResponse `json:"entries"`
}

func NewFloatHistoryResponse(a domain.Agent, entries []domain.FloatEntry) FloatHistoryResponse {
	out := FloatHistoryResponse{
		AgentNumber:  a.AgentNumber,
		BusinessName: a.BusinessName,
		FloatBalance: money(a.FloatBalance),
		Entries:      make([]FloatEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, FloatEntryResponse{
			TransactionID: e.TransactionID,
			Kind:          string(e.Kind),
			Amount:        money(e.Amount),
			BalanceBefore: money(e.BalanceBefore),
			BalanceAfter:  money(e.BalanceAfter),
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

type CommissionEntryResponse struct {
	CommissionID  string    `json:"commissionId"`
	TransactionID string    `json:"transactionId"`
	Kind          string    `json:"kind"`
	Amount        string    `json:"amount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CommissionStatementResponse struct {
	AgentNumber     string                    `json:"agentNumber"`
	BusinessName    string                    `json:"businessName"`
	CommissionRate  string                    `json:"commissionRate"`
	TotalCommission string                    `json:"totalCommission"`
	Commissions     []CommissionEntryResponse `json:"commissions"`
}

func NewCommissionStatementResponse(statement service_interfaces.CommissionStatement) CommissionStatementResponse {
	out := CommissionStatementResponse{
		AgentNumber:     statement.Agent.AgentNumber,
		BusinessName:    statement.Agent.BusinessName,
		CommissionRate:  statement.Agent.CommissionRate.String(),
		TotalCommission: money(statement.Total),
		Commissions:     make([]CommissionEntryResponse, 0, len(statement.Commissions)),
	}
	for _, c := range statement.Commissions {
		out.Commissions = append(out.Commissions, CommissionEntryResponse{
			CommissionID:  c.ID,
			TransactionID: c.TransactionID,
			Kind:          string(c.Kind),
			Amount:        money(c.Amount),
			CreatedAt:     c.CreatedAt,
		})
	}
	return out
}
