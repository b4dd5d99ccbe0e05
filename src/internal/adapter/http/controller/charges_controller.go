package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/models"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type ChargesController struct {
	charges service_interfaces.ChargesService
}

func NewChargesController(charges service_interfaces.ChargesService) *ChargesController {
	return &ChargesController{charges: charges}
}

func (c *ChargesController) RegisterRoutes(r chi.Router) {
	r.Get("/charges/quote", c.quote)
}

func (c *ChargesController) RegisterInternalRoutes(r chi.Router) {
	r.Post("/charge-bands/reload", c.reload)
}

func (c *ChargesController) quote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := models.ChargeQuoteRequest{
		Kind:   r.URL.Query().Get("kind"),
		Amount: r.URL.Query().Get("amount"),
	}
	logRequest(r, req)
	if !validate(w, r, req, start) {
		return
	}

	quote, err := c.charges.Quote(req.TransactionKind(), models.Amount(req.Amount))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "charge calculated", models.NewChargeQuoteResponse(quote), start)
}

func (c *ChargesController) reload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	n, err := c.charges.Reload(r.Context())
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "charge bands reloaded", models.ReloadResponse{Bands: n}, start)
}
