package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/http/models"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type LoanController struct {
	loans      service_interfaces.LoanService
	pins       service_interfaces.PinService
	requirePIN bool
	now        func() time.Time
}

func NewLoanController(loans service_interfaces.LoanService, pins service_interfaces.PinService, requirePIN bool) *LoanController {
	return &LoanController{loans: loans, pins: pins, requirePIN: requirePIN, now: time.Now}
}

func (c *LoanController) RegisterRoutes(r chi.Router) {
	r.Get("/loan-products", c.listProducts)
	r.Get("/loan-products/{productID}/quote", c.quote)
	r.Post("/loans", c.apply)
	r.Get("/loans/{loanID}", c.getLoan)
	r.Post("/loans/{loanID}/repay", c.repay)
}

func (c *LoanController) RegisterAdminRoutes(r chi.Router) {
	r.Post("/loans/{loanID}/approve", c.approve)
	r.Post("/loans/{loanID}/reject", c.reject)
}

func (c *LoanController) RegisterInternalRoutes(r chi.Router) {
	r.Post("/loans/default-sweep", c.defaultSweep)
}

func (c *LoanController) listProducts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	products, err := c.loans.ListProducts(r.Context())
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "loan products retrieved", models.NewLoanProductResponses(products), start)
}

func (c *LoanController) quote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	amount, err := domain.ParseMoney(r.URL.Query().Get("amount"))
	if err != nil {
		respondInvalid(w, r, "validation failed", []string{domain.Describe(err)}, start)
		return
	}

	quote, err := c.loans.Quote(r.Context(), chi.URLParam(r, "productID"), amount)
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "loan quote calculated", models.NewLoanQuoteResponse(quote), start)
}

func (c *LoanController) apply(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}

	var req models.LoanApplicationRequest
	if !decodeBody(w, r, &req, start) {
		return
	}
	logRequest(r, req)
	if !validate(w, r, req, start) {
		return
	}

	loan, err := c.loans.Apply(r.Context(), req.Application(p.Subject))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusCreated, "loan application received", models.NewLoanResponse(loan, nil), start)
}

func (c *LoanController) getLoan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}
	id := chi.URLParam(r, "loanID")
	logRequest(r, nil)

	loan, repayments, err := c.loans.GetLoan(r.Context(), id)
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	if !isStaff(p) && loan.BorrowerOwnerID != p.Subject {
		respondError(w, r, domain.NewError(domain.KindNotFound, "loan %s not found", id), start)
		return
	}
	respond(w, r, http.StatusOK, "loan retrieved", models.NewLoanResponse(loan, repayments), start)
}

func (c *LoanController) repay(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, ok := caller(w, r, start)
	if !ok {
		return
	}

	var req models.LoanRepaymentRequest
	if !decodeBody(w, r, &req, start) {
		return
	}
	req.RequestID = requestID(r, req.RequestID)
	logRequest(r, req)
	if !validate(w, r, req, start) {
		return
	}

	if c.pins != nil && (req.PIN != "" || c.requirePIN) {
		if err := c.pins.VerifyPin(r.Context(), p.Subject, req.PIN); err != nil {
			respondError(w, r, err, start)
			return
		}
	}

	loan, repayment, err := c.loans.Repay(r.Context(), p.Subject, chi.URLParam(r, "loanID"), models.Amount(req.Amount), req.RequestID)
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "repayment received", models.LoanRepayResponse{
		Loan:      models.NewLoanResponse(loan, nil),
		Repayment: models.NewRepaymentResponse(repayment),
	}, start)
}

func (c *LoanController) approve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	loan, txn, err := c.loans.Approve(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	disbursement := models.NewTransactionResponse(txn)
	respond(w, r, http.StatusOK, "loan approved and disbursed", models.LoanDecisionResponse{
		Loan:         models.NewLoanResponse(loan, nil),
		Disbursement: &disbursement,
	}, start)
}

func (c *LoanController) reject(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	loan, err := c.loans.Reject(r.Context(), chi.URLParam(r, "loanID"))
	if err != nil {
		respondError(w, r, err, start)
		return
	}
	respond(w, r, http.StatusOK, "loan rejected", models.LoanDecisionResponse{Loan: models.NewLoanResponse(loan, nil)}, start)
}

func (c *LoanController) defaultSweep(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	asOf := c.now()
	if raw := strings.TrimSpace(r.URL.Query().Get("asOf")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondInvalid(w, r, "validation failed", []string{"asOf must be an RFC3339 timestamp"}, start)
			return
		}
		asOf = parsed
	}

	n, err := c.loans.MarkDefaulted(r.Context(), asOf)
	if err != nil && n == 0 {
		respondError(w, r, err, start)
		return
	}
	if err != nil {
		logError(r, err, nil)
	}
	respond(w, r, http.StatusOK, "default sweep completed", models.SweepResponse{Defaulted: n, AsOf: asOf}, start)
}
