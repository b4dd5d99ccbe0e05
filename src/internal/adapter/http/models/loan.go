package models

import (
	"time"

	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

type LoanApplicationRequest struct {
	ProductID string `json:"productId"`
	Amount    string `json:"amount"`
	Purpose   string `json:"purpose,omitempty"`
}

func (r LoanApplicationRequest) Validate() error {
	var errs fieldErrors
	errs.required("productId", r.ProductID)
	errs.amount("amount", r.Amount)
	if len(r.Purpose) > 200 {
		errs.add("purpose must not exceed 200 characters")
	}
	return errs.err()
}

func (r LoanApplicationRequest) Application(ownerID string) service_interfaces.LoanApplication {
	return service_interfaces.LoanApplication{
		OwnerID:   ownerID,
		ProductID: r.ProductID,
		Principal: Amount(r.Amount),
		Purpose:   r.Purpose,
	}
}

type LoanRepaymentRequest struct {
	RequestID string `json:"requestId"`
	Amount    string `json:"amount"`
	PIN       string `json:"pin,omitempty"`
}

func (r LoanRepaymentRequest) Validate() error {
	var errs fieldErrors
	errs.requestID(r.RequestID)
	errs.amount("amount", r.Amount)
	return errs.err()
}

type LoanProductResponse struct {
	ProductID       string `json:"productId"`
	Name            string `json:"name"`
	MinAmount       string `json:"minAmount"`
	MaxAmount       string `json:"maxAmount"`
	InterestRate    string `json:"interestRate"`
	DurationDays    int    `json:"durationDays"`
	FacilitationFee string `json:"facilitationFee"`
}

func NewLoanProductResponses(products []domain.LoanProduct) []LoanProductResponse {
	out := make([]LoanProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, LoanProductResponse{
			ProductID:       p.ID,
			Name:            p.Name,
			MinAmount:       money(p.MinAmount),
			MaxAmount:       money(p.MaxAmount),
			InterestRate:    p.InterestRate.String(),
			DurationDays:    p.DurationDays,
			FacilitationFee: money(p.FacilitationFee),
		})
	}
	return out
}

type LoanQuoteResponse struct {
	ProductID       string    `json:"productId"`
	Principal       string    `json:"principal"`
	InterestAmount  string    `json:"interestAmount"`
	FacilitationFee string    `json:"facilitationFee"`
	TotalAmount     string    `json:"totalAmount"`
	DurationDays    int       `json:"durationDays"`
	DueDate         time.Time `json:"dueDate"`
}

func NewLoanQuoteResponse(q service_interfaces.LoanQuote) LoanQuoteResponse {
	return LoanQuoteResponse{
		ProductID:       q.ProductID,
		Principal:       money(q.Terms.Principal),
		InterestAmount:  money(q.Terms.InterestAmount),
		FacilitationFee: money(q.Terms.FacilitationFee),
		TotalAmount:     money(q.Terms.TotalAmount),
		DurationDays:    q.Terms.DurationDays,
		DueDate:         q.DueDate,
	}
}

type RepaymentResponse struct {
	RepaymentID   string    `json:"repaymentId"`
	TransactionID string    `json:"transactionId"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balanceBefore"`
	BalanceAfter  string    `json:"balanceAfter"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NewRepaymentResponse(p domain.LoanRepayment) RepaymentResponse {
	return RepaymentResponse{
		RepaymentID:   p.ID,
		TransactionID: p.TransactionID,
		Amount:        money(p.Amount),
		BalanceBefore: money(p.BalanceBefore),
		BalanceAfter:  money(p.BalanceAfter),
		CreatedAt:     p.CreatedAt,
	}
}

type LoanResponse struct {
	LoanID            string              `json:"loanId"`
	ProductID         string              `json:"productId"`
	Status            string              `json:"status"`
	Principal         string              `json:"principal"`
	InterestAmount    string              `json:"interestAmount"`
	FacilitationFee   string              `json:"facilitationFee"`
	TotalAmount       string              `json:"totalAmount"`
	AmountPaid        string              `json:"amountPaid"`
	Balance           string              `json:"balance"`
	Purpose           string              `json:"purpose,omitempty"`
	AppliedAt         time.Time           `json:"appliedAt"`
	DueDate           time.Time           `json:"dueDate"`
	ApprovedAt        *time.Time          `json:"approvedAt,omitempty"`
	DisbursedAt       *time.Time          `json:"disbursedAt,omitempty"`
	PaidAt            *time.Time          `json:"paidAt,omitempty"`
	DisbursementTxnID string              `json:"disbursementTransactionId,omitempty"`
	Repayments        []RepaymentResponse `json:"repayments,omitempty"`
}

func NewLoanResponse(l domain.Loan, repayments []domain.LoanRepayment) LoanResponse {
	out := LoanResponse{
		LoanID:            l.ID,
		ProductID:         l.ProductID,
		Status:            string(l.Status),
		Principal:         money(l.Principal),
		InterestAmount:    money(l.InterestAmount),
		FacilitationFee:   money(l.FacilitationFee),
		TotalAmount:       money(l.TotalAmount),
		AmountPaid:        money(l.AmountPaid),
		Balance:           money(l.Balance),
		Purpose:           l.Purpose,
		AppliedAt:         l.AppliedAt,
		DueDate:           l.DueDate,
		ApprovedAt:        l.ApprovedAt,
		DisbursedAt:       l.DisbursedAt,
		PaidAt:            l.PaidAt,
		DisbursementTxnID: l.DisbursementTxnID,
	}
	for _, p := range repayments {
		out.Repayments = append(out.Repayments, NewRepaymentResponse(p))
	}
	return out
}

type LoanDecisionResponse struct {
	Loan         LoanResponse         `json:"loan"`
	Disbursement *TransactionResponse `json:"disbursement,omitempty"`
}

type LoanRepayResponse struct {
	Loan      LoanResponse      `json:"loan"`
	Repayment RepaymentResponse `json:"repayment"`
}

type SweepResponse struct {
	Defaulted int       `json:"defaulted"`
	AsOf      time.Time `json:"asOf"`
}
