package models

import (
	"strings"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type ChargeQuoteRequest struct {
	Kind   string `json:"kind"`
	Amount string `json:"amount"`
}

func (r ChargeQuoteRequest) Validate() error {
	var errs fieldErrors
	if !r.TransactionKind().Valid() {
		errs.add("kind must be a transaction kind")
	}
	errs.amount("amount", r.Amount)
	return errs.err()
}

func (r ChargeQuoteRequest) TransactionKind() domain.TransactionKind {
	return domain.TransactionKind(strings.ToUpper(strings.TrimSpace(r.Kind)))
}

type ChargeQuoteResponse struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Fee         string `json:"fee"`
	TotalAmount string `json:"totalAmount"`
}

func NewChargeQuoteResponse(q service_interfaces.ChargeQuote) ChargeQuoteResponse {
	return ChargeQuoteResponse{
		Kind:        string(q.Kind),
		Amount:      money(q.Amount),
		Fee:         money(q.Fee),
		TotalAmount: money(q.TotalAmount),
	}
}

type ReloadResponse struct {
	Bands int `json:"bands"`
}
