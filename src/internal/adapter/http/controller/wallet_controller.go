package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/models"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type WalletController struct {
	transfers service_interfaces.TransferService
	pins      service_interfaces.PinService
}

func NewWalletController(transfers service_interfaces.TransferService, pins service_interfaces.PinService) *WalletController {
	return &WalletController{transfers: transfers, pins: pins}
}

func (c *WalletController) RegisterRoutes(r chi.Router) {
	r.Get("/wallets/me", c.getWallet)
	r.Get("/wallets/me/transactions", c.statement)
	r.Put("/wallets/me/pin", c.setPin)
	r.Get("/agents/{agentNumber}/float", c.floatHistory)
	r.Get("/agents/{agentNumber}/commissions", c.commissions)
}

func (c *WalletController) getWallet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	logRequest(r, nil)

	wallet, err := c.transfers.WalletForOwner(r.Context(), p.Subject)
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "wallet retrieved", models.NewWalletResponse(wallet), start)
}

func (c *WalletController) statement(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	logRequest(r, nil)

	wallet, txns, err := c.transfers.Statement(r.Context(), p.Subject, queryLimit(r))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "statement retrieved", models.NewStatementResponse(wallet, txns), start)
}

func (c *WalletController) setPin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}

	var req models.SetPinRequest
	if !decodeBody(w, r, &req, start) {
		return
	}
	logRequest(r, req)
	if !validate(w, r, req, start) {
		return
	}

	if err := c.pins.SetPin(r.Context(), p.Subject, req.PIN); err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "pin updated", struct{}{}, start)
}

func (c *WalletController) floatHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	logRequest(r, nil)

	agent, entries, err := c.transfers.FloatHistory(r.Context(), p.Subject, chi.URLParam(r, "agentNumber"), queryLimit(r))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "float history retrieved", models.NewFloatHistoryResponse(agent, entries), start)
}

func (c *WalletController) commissions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	logRequest(r, nil)

	statement, err := c.transfers.Commissions(r.Context(), p.Subject, chi.URLParam(r, "agentNumber"), queryLimit(r))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "commissions retrieved", models.NewCommissionStatementResponse(statement), start)
}
