package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/models"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type TransactionController struct {
	transfers  service_interfaces.TransferService
	pins       service_interfaces.PinService
	requirePIN bool
}

func NewTransactionController(transfers service_interfaces.TransferService, pins service_interfaces.PinService, requirePIN bool) *TransactionController {
	return &TransactionController{transfers: transfers, pins: pins, requirePIN: requirePIN}
}

func (c *TransactionController) RegisterRoutes(r chi.Router) {
	r.Post("/transactions/send-money", func(w http.ResponseWriter, r *http.Request) {
		c.post(w, r, &models.SendMoneyRequest{})
	})
	r.Post("/transactions/withdrawals", func(w http.ResponseWriter, r *http.Request) {
		c.post(w, r, &models.WithdrawalRequest{})
	})
	r.Post("/transactions/deposits", func(w http.ResponseWriter, r *http.Request) {
		c.post(w, r, &models.DepositRequest{})
	})
	r.Post("/transactions/paybill", func(w http.ResponseWriter, r *http.Request) {
		c.post(w, r, &models.PaybillRequest{})
	})
	r.Post("/transactions/buy-goods", func(w http.ResponseWriter, r *http.Request) {
		c.post(w, r, &models.BuyGoodsRequest{})
	})
	r.Post("/transactions/airtime", func(w http.ResponseWriter, r *http.Request) {
		c.post(w, r, &models.AirtimeRequest{})
	})
	r.Get("/transactions/{transactionID}", c.getTransaction)
}

func (c *TransactionController) post(w http.ResponseWriter, r *http.Request, req models.TransactionRequest) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	if !decodeBody(w, r, req, start) {
		return
	}
	if key := requestID(r, ""); key != "" {
		req.SetRequestID(key)
	}
	logRequest(r, req)
	if !validate(w, r, req, start) {
		return
	}

	intent := req.Intent(p.Subject)
	if err := c.confirmPIN(r, intent.Kind, p.Subject, req.TransactionPIN()); err != nil {
		respondError(w, r, err, start)
		return
	}

	txn, err := c.transfers.Execute(r.Context(), intent)
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusCreated, "transaction completed", models.NewTransactionResponse(txn), start)
}

// confirmPIN checks the wallet PIN when one is supplied, or always when the
// deployment requires it. Deposits move agent float and carry no PIN.
func (c *TransactionController) confirmPIN(r *http.Request, kind domain.TransactionKind, ownerID, pin string) error {
	if kind == domain.KindDeposit || c.pins == nil {
		return nil
	}
	if pin == "" && !c.requirePIN {
		return nil
	}
	return c.pins.VerifyPin(r.Context(), ownerID, pin)
}

func (c *TransactionController) getTransaction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	id := chi.URLParam(r, "transactionID")
	logRequest(r, nil)

	txn, err := c.transfers.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, r, err, start)
		return
	}

	if !isStaff(p) {
		wallet, err := c.transfers.WalletForOwner(r.Context(), p.Subject)
		if err != nil || !involves(txn, wallet.ID) {
			respondError(w, r, domain.NewError(domain.KindNotFound, "transaction %s not found", id), start)
			return
		}
	}
	respond(w, r, http.StatusOK, "transaction retrieved", models.NewTransactionResponse(txn), start)
}

func involves(txn domain.Transaction, walletID string) bool {
	for _, party := range txn.Parties {
		if party.AccountType == domain.AccountTypeWallet && party.AccountID == walletID {
			return true
		}
	}
	return false
}
