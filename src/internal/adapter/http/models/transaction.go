package models

import (
	"strings"
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

var airtimeNetworks = []string{"SAFARICOM", "AIRTEL", "TELKOM"}

// TransactionRequest is implemented by every customer-initiated posting.
type TransactionRequest interface {
	Validate() error
	Intent(initiatorID string) service_interfaces.TransferIntent
	TransactionPIN() string
	SetRequestID(id string)
}

type SendMoneyRequest struct {
	RequestID      string `json:"requestId"`
	RecipientPhone string `json:"recipientPhone"`
	Amount         string `json:"amount"`
	Narration      string `json:"narration,omitempty"`
	PIN            string `json:"pin,omitempty"`
}

func (r SendMoneyRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	if !isPhoneNumber(r.RecipientPhone) {
		errs.add("recipientPhone must be a phone number")
	}
	errs.amount("amount", r.Amount)
	if len(r.Narration) > 140 {
		errs.add("narration must not exceed 140 characters")
	}
	return errs.err()
}

func (r SendMoneyRequest) Intent(initiatorID string) service_interfaces.TransferIntent {
	return service_interfaces.TransferIntent{
		Kind:           domain.KindSendMoney,
		RequestID:      r.RequestID,
		InitiatorID:    initiatorID,
		RecipientPhone: r.RecipientPhone,
		Amount:         Amount(r.Amount),
		Narration:      r.Narration,
	}
}

func (r SendMoneyRequest) TransactionPIN() string { return r.PIN }
func (r *SendMoneyRequest) SetRequestID(id string) { r.RequestID = id }

type WithdrawalRequest struct {
	RequestID   string `json:"requestId"`
	AgentNumber string `json:"agentNumber"`
	Amount      string `json:"amount"`
	PIN         string `json:"pin,omitempty"`
}

func (r WithdrawalRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	errs.required("agentNumber", r.AgentNumber)
	errs.amount("amount", r.Amount)
	return errs.err()
}

func (r WithdrawalRequest) Intent(initiatorID string) service_interfaces.TransferIntent {
	return service_interfaces.TransferIntent{
		Kind:        domain.KindWithdrawal,
		RequestID:   r.RequestID,
		InitiatorID: initiatorID,
		AgentNumber: r.AgentNumber,
		Amount:      Amount(r.Amount),
	}
}

func (r WithdrawalRequest) TransactionPIN() string { return r.PIN }
func (r *WithdrawalRequest) SetRequestID(id string) { r.RequestID = id }

// DepositRequest is submitted by the operator of the receiving agent.
type DepositRequest struct {
	RequestID     string `json:"requestId"`
	AgentNumber   string `json:"agentNumber"`
	CustomerPhone string `json:"customerPhone"`
	Amount        string `json:"amount"`
}

func (r DepositRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	errs.required("agentNumber", r.AgentNumber)
	if !isPhoneNumber(r.CustomerPhone) {
		errs.add("customerPhone must be a phone number")
	}
	errs.amount("amount", r.Amount)
	return errs.err()
}

func (r DepositRequest) Intent(initiatorID string) service_interfaces.TransferIntent {
	return service_interfaces.TransferIntent{
		Kind:           domain.KindDeposit,
		RequestID:      r.RequestID,
		InitiatorID:    initiatorID,
		AgentNumber:    r.AgentNumber,
		RecipientPhone: r.CustomerPhone,
		Amount:         Amount(r.Amount),
	}
}

// Deposits debit agent float, not the caller's wallet.
func (r DepositRequest) TransactionPIN() string { return "" }
func (r *DepositRequest) SetRequestID(id string) { r.RequestID = id }

type PaybillRequest struct {
	RequestID        string `json:"requestId"`
	BusinessNumber   string `json:"businessNumber"`
	AccountReference string `json:"accountReference"`
	Amount           string `json:"amount"`
	PIN              string `json:"pin,omitempty"`
}

func (r PaybillRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	errs.required("businessNumber", r.BusinessNumber)
	errs.required("accountReference", r.AccountReference)
	if len(r.AccountReference) > 64 {
		errs.add("accountReference must not exceed 64 characters")
	}
	errs.amount("amount", r.Amount)
	return errs.err()
}

func (r PaybillRequest) Intent(initiatorID string) service_interfaces.TransferIntent {
	return service_interfaces.TransferIntent{
		Kind:             domain.KindPaybill,
		RequestID:        r.RequestID,
		InitiatorID:      initiatorID,
		BusinessNumber:   r.BusinessNumber,
		AccountReference: r.AccountReference,
		Amount:           Amount(r.Amount),
	}
}

func (r PaybillRequest) TransactionPIN() string { return r.PIN }
func (r *PaybillRequest) SetRequestID(id string) { r.RequestID = id }

type BuyGoodsRequest struct {
	RequestID  string `json:"requestId"`
	TillNumber string `json:"tillNumber"`
	Amount     string `json:"amount"`
	PIN        string `json:"pin,omitempty"`
}

func (r BuyGoodsRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	errs.required("tillNumber", r.TillNumber)
	errs.amount("amount", r.Amount)
	return errs.err()
}

func (r BuyGoodsRequest) Intent(initiatorID string) service_interfaces.TransferIntent {
	return service_interfaces.TransferIntent{
		Kind:           domain.KindBuyGoods,
		RequestID:      r.RequestID,
		InitiatorID:    initiatorID,
		BusinessNumber: r.TillNumber,
		Amount:         Amount(r.Amount),
	}
}

func (r BuyGoodsRequest) TransactionPIN() string { return r.PIN }
func (r *BuyGoodsRequest) SetRequestID(id string) { r.RequestID = id }

// AirtimeRequest tops up PhoneNumber, or the buyer's own line when empty.
type AirtimeRequest struct {
	RequestID   string `json:"requestId"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Network     string `json:"network"`
	Amount      string `json:"amount"`
	PIN         string `json:"pin,omitempty"`
}

func (r AirtimeRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	if strings.TrimSpace(r.PhoneNumber) != "" && !isPhoneNumber(r.PhoneNumber) {
		errs.add("phoneNumber must be a phone number")
	}
	if !isAirtimeNetwork(r.Network) {
		errs.add("network must be one of " + strings.Join(airtimeNetworks, ", "))
	}
	errs.amount("amount", r.Amount)
	return errs.err()
}

func (r AirtimeRequest) Intent(initiatorID string) service_interfaces.TransferIntent {
	return service_interfaces.TransferIntent{
		Kind:           domain.KindAirtime,
		RequestID:      r.RequestID,
		InitiatorID:    initiatorID,
		RecipientPhone: r.PhoneNumber,
		Network:        strings.ToUpper(strings.TrimSpace(r.Network)),
		Amount:         Amount(r.Amount),
	}
}

func (r AirtimeRequest) TransactionPIN() string { return r.PIN }
func (r *AirtimeRequest) SetRequestID(id string) { r.RequestID = id }

func isAirtimeNetwork(value string) bool {
	for _, n := range airtimeNetworks {
		if strings.EqualFold(n, strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

type PartyResponse struct {
	Role          string `json:"role"`
	AccountType   string `json:"accountType"`
	AccountID     string `json:"accountId"`
	BalanceBefore string `json:"balanceBefore"`
	BalanceAfter  string `json:"balanceAfter"`
}

type EntryResponse struct {
	AccountType  string `json:"accountType"`
	AccountID    string `json:"accountId"`
	Delta        string `json:"delta"`
	BalanceAfter string `json:"balanceAfter"`
}

type CommissionResponse struct {
	AgentID string `json:"agentId"`
	Amount  string `json:"amount"`
}

type TransactionResponse struct {
	TransactionID    string              `json:"transactionId"`
	RequestID        string              `json:"requestId,omitempty"`
	Kind             string              `json:"kind"`
	Status           string              `json:"status"`
	Amount           string              `json:"amount"`
	Fee              string              `json:"fee"`
	TotalAmount      string              `json:"totalAmount"`
	Currency         string              `json:"currency"`
	AccountReference string              `json:"accountReference,omitempty"`
	RecipientPhone   string              `json:"recipientPhone,omitempty"`
	Network          string              `json:"network,omitempty"`
	Narration        string              `json:"narration,omitempty"`
	LoanID           string              `json:"loanId,omitempty"`
	Parties          []PartyResponse     `json:"parties"`
	Entries          []EntryResponse     `json:"entries,omitempty"`
	Commission       *CommissionResponse `json:"commission,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
}

func NewTransactionResponse(txn domain.Transaction) TransactionResponse {
	out := TransactionResponse{
		TransactionID:    txn.ID,
		RequestID:        txn.RequestID,
		Kind:             string(txn.Kind),
		Status:           string(txn.Status),
		Amount:           money(txn.Amount),
		Fee:              money(txn.Fee),
		TotalAmount:      money(txn.TotalAmount),
		Currency:         txn.Currency,
		AccountReference: txn.AccountReference,
		RecipientPhone:   txn.RecipientPhone,
		Network:          txn.Network,
		Narration:        txn.Narration,
		LoanID:           txn.LoanID,
		Parties:          make([]PartyResponse, 0, len(txn.Parties)),
		CreatedAt:        txn.CreatedAt,
		CompletedAt:      txn.CompletedAt,
	}
	for _, p := range txn.Parties {
		out.Parties = append(out.Parties, PartyResponse{
			Role:          string(p.Role),
			AccountType:   string(p.AccountType),
			AccountID:     p.AccountID,
			BalanceBefore: money(p.BalanceBefore),
			BalanceAfter:  money(p.BalanceAfter),
		})
	}
	for _, e := range txn.Entries {
		out.Entries = append(out.Entries, EntryResponse{
			AccountType:  string(e.AccountType),
			AccountID:    e.AccountID,
			Delta:        money(e.Delta),
			BalanceAfter: money(e.BalanceAfter),
		})
	}
	if txn.Commission != nil {
		out.Commission = &CommissionResponse{AgentID: txn.Commission.AgentID, Amount: money(txn.Commission.Amount)}
	}
	return out
}
