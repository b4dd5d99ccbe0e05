package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/commons"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

const defaultSweepBatch = 500

type LoanOptions struct {
	RejectOverpayment bool
	UnitTimeout       time.Duration
	SweepBatchSize    int
	Now               func() time.Time
}

// LoanService drives the loan lifecycle. Money only moves through the
// transfer engine, inside the same unit that changes the loan.
type LoanService struct {
	store      repo_interfaces.LedgerStore
	loanRepo   repo_interfaces.LoanRepository
	walletRepo repo_interfaces.WalletRepository
	transfers  service_interfaces.TransferService
	ids        *commons.IDGenerator
	opts       LoanOptions
}

var _ service_interfaces.LoanService = (*LoanService)(nil)

func NewLoanService(
	store repo_interfaces.LedgerStore,
	loanRepo repo_interfaces.LoanRepository,
	walletRepo repo_interfaces.WalletRepository,
	transfers service_interfaces.TransferService,
	ids *commons.IDGenerator,
	opts LoanOptions,
) *LoanService {
	if opts.UnitTimeout <= 0 {
		opts.UnitTimeout = 10 * time.Second
	}
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = defaultSweepBatch
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if ids == nil {
		ids = commons.NewIDGenerator()
	}

	return &LoanService{
		store:      store,
		loanRepo:   loanRepo,
		walletRepo: walletRepo,
		transfers:  transfers,
		ids:        ids,
		opts:       opts,
	}
}

func (s *LoanService) Quote(ctx context.Context, productID string, principal decimal.Decimal) (service_interfaces.LoanQuote, error) {
	product, err := s.loanRepo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return service_interfaces.LoanQuote{}, err
	}
	if !product.IsActive {
		return service_interfaces.LoanQuote{}, domain.NewError(domain.KindInactiveAccount, "loan product %s is not available", product.ID)
	}
	if err := domain.CheckPositive(principal); err != nil {
		return service_interfaces.LoanQuote{}, err
	}
	if principal.LessThan(product.MinAmount) || principal.GreaterThan(product.MaxAmount) {
		return service_interfaces.LoanQuote{}, domain.NewError(domain.KindInvalidAmount,
			"loan amount must be between %s and %s", domain.FormatMoney(product.MinAmount), domain.FormatMoney(product.MaxAmount))
	}

	return service_interfaces.LoanQuote{
		ProductID: product.ID,
		Terms:     product.Price(principal),
		DueDate:   dueDate(s.opts.Now(), product.DurationDays),
	}, nil
}

func (s *LoanService) Apply(ctx context.Context, app service_interfaces.LoanApplication) (domain.Loan, error) {
	logger.Info("loan service apply request", logger.Fields{
		"ownerId":   app.OwnerID,
		"productId": app.ProductID,
		"principal": app.Principal.String(),
	})

	quote, err := s.Quote(ctx, app.ProductID, app.Principal)
	if err != nil {
		logger.Error("loan service apply quote failed", err, logger.Fields{"ownerId": app.OwnerID})
		return domain.Loan{}, err
	}
	wallet, err := s.walletRepo.GetByOwner(ctx, strings.TrimSpace(app.OwnerID))
	if err != nil {
		return domain.Loan{}, err
	}

	now := s.opts.Now().UTC()
	loan := domain.Loan{
		ID:               s.ids.Next("LN"),
		BorrowerWalletID: wallet.ID,
		BorrowerOwnerID:  wallet.OwnerID,
		ProductID:        quote.ProductID,
		Principal:        quote.Terms.Principal,
		InterestAmount:   quote.Terms.InterestAmount,
		FacilitationFee:  quote.Terms.FacilitationFee,
		TotalAmount:      quote.Terms.TotalAmount,
		AmountPaid:       decimal.Zero,
		Balance:          quote.Terms.TotalAmount,
		Status:           domain.LoanStatusPending,
		Purpose:          strings.TrimSpace(app.Purpose),
		AppliedAt:        now,
		DueDate:          quote.DueDate,
		UpdatedAt:        now,
	}

	err = s.withinUnit(ctx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		wallets, err := unit.LockWallets(ctx, wallet.ID)
		if err != nil {
			return err
		}
		if !wallets[wallet.ID].IsActive {
			return domain.NewError(domain.KindInactiveAccount, "wallet %s is not active", wallet.ID)
		}
		if existing, found, err := unit.FindOutstandingLoan(ctx, wallet.ID); err != nil {
			return err
		} else if found {
			return domain.NewError(domain.KindInvalidState, "borrower already has outstanding loan %s", existing.ID)
		}
		return unit.InsertLoan(ctx, loan)
	})
	if err != nil {
		logger.Error("loan service apply failed", err, logger.Fields{"ownerId": app.OwnerID})
		return domain.Loan{}, err
	}

	logger.Info("loan service apply success", logger.Fields{
		"loanId": loan.ID,
		"total":  loan.TotalAmount.String(),
	})
	return loan, nil
}

// Approve approves a pending loan and disburses the principal to the
// borrower in the same unit.
func (s *LoanService) Approve(ctx context.Context, loanID string) (domain.Loan, domain.Transaction, error) {
	loanID = strings.TrimSpace(loanID)
	logger.Info("loan service approve request", logger.Fields{"loanId": loanID})

	var (
		loan domain.Loan
		txn  domain.Transaction
	)
	err := s.withinUnit(ctx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		var err error
		if loan, err = unit.LockLoan(ctx, loanID); err != nil {
			return err
		}
		if !loan.Status.CanTransition(domain.LoanStatusApproved) {
			return domain.NewError(domain.KindInvalidState, "loan %s is %s and cannot be approved", loan.ID, loan.Status)
		}
		if _, err := unit.LockWallets(ctx, loan.BorrowerWalletID); err != nil {
			return err
		}
		if other, found, err := unit.FindOutstandingLoan(ctx, loan.BorrowerWalletID); err != nil {
			return err
		} else if found && other.ID != loan.ID {
			return domain.NewError(domain.KindInvalidState, "borrower already has outstanding loan %s", other.ID)
		}

		txn, err = s.transfers.PostWithin(ctx, unit, service_interfaces.TransferIntent{
			Kind:             domain.KindLoanDisbursement,
			RequestID:        "DISBURSE-" + loan.ID,
			InitiatorID:      loan.BorrowerOwnerID,
			Amount:           loan.Principal,
			Narration:        "loan disbursement",
			LoanID:           loan.ID,
			BorrowerWalletID: loan.BorrowerWalletID,
		})
		if err != nil {
			return err
		}

		now := s.opts.Now().UTC()
		loan.Status = domain.LoanStatusDisbursed
		loan.ApprovedAt = &now
		loan.DisbursedAt = &now
		loan.DisbursementTxnID = txn.ID
		loan.UpdatedAt = now
		return unit.UpdateLoan(ctx, loan)
	})
	if err != nil {
		logger.Error("loan service approve failed", err, logger.Fields{"loanId": loanID})
		return domain.Loan{}, domain.Transaction{}, err
	}

	s.transfers.Publish(ctx, txn)
	logger.Info("loan service approve success", logger.Fields{
		"loanId":        loan.ID,
		"transactionId": txn.ID,
	})
	return loan, txn, nil
}

func (s *LoanService) Reject(ctx context.Context, loanID string) (domain.Loan, error) {
	loanID = strings.TrimSpace(loanID)

	var loan domain.Loan
	err := s.withinUnit(ctx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		var err error
		if loan, err = unit.LockLoan(ctx, loanID); err != nil {
			return err
		}
		if !loan.Status.CanTransition(domain.LoanStatusRejected) {
			return domain.NewError(domain.KindInvalidState, "loan %s is %s and cannot be rejected", loan.ID, loan.Status)
		}
		loan.Status = domain.LoanStatusRejected
		loan.UpdatedAt = s.opts.Now().UTC()
		return unit.UpdateLoan(ctx, loan)
	})
	if err != nil {
		logger.Error("loan service reject failed", err, logger.Fields{"loanId": loanID})
		return domain.Loan{}, err
	}

	logger.Info("loan service reject success", logger.Fields{"loanId": loan.ID})
	return loan, nil
}

// Repay moves amount from the borrower's wallet to the loan book. An amount
// above the balance is clamped to it, or refused when overpayment is
// configured to be rejected.
func (s *LoanService) Repay(ctx context.Context, ownerID string, loanID string, amount decimal.Decimal, requestID string) (domain.Loan, domain.LoanRepayment, error) {
	loanID = strings.TrimSpace(loanID)
	ownerID = strings.TrimSpace(ownerID)
	logger.Info("loan service repay request", logger.Fields{
		"loanId":    loanID,
		"amount":    amount.String(),
		"requestId": requestID,
	})

	if err := domain.CheckPositive(amount); err != nil {
		return domain.Loan{}, domain.LoanRepayment{}, err
	}

	var (
		loan      domain.Loan
		repayment domain.LoanRepayment
		txn       domain.Transaction
	)
	err := s.withinUnit(ctx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
		var err error
		if loan, err = unit.LockLoan(ctx, loanID); err != nil {
			return err
		}
		if loan.BorrowerOwnerID != ownerID {
			return domain.NewError(domain.KindForbidden, "loan %s does not belong to the caller", loan.ID)
		}
		if !loan.Status.Repayable() {
			return domain.NewError(domain.KindInvalidState, "loan %s is %s and cannot be repaid", loan.ID, loan.Status)
		}

		pay := amount
		if pay.GreaterThan(loan.Balance) {
			if s.opts.RejectOverpayment {
				return domain.NewError(domain.KindInvalidAmount, "repayment exceeds outstanding balance %s", domain.FormatMoney(loan.Balance))
			}
			pay = loan.Balance
		}

		txn, err = s.transfers.PostWithin(ctx, unit, service_interfaces.TransferIntent{
			Kind:             domain.KindLoanRepayment,
			RequestID:        requestID,
			InitiatorID:      ownerID,
			Amount:           pay,
			Narration:        "loan repayment",
			LoanID:           loan.ID,
			BorrowerWalletID: loan.BorrowerWalletID,
		})
		if err != nil {
			return err
		}

		now := s.opts.Now().UTC()
		before := loan.Balance
		loan.AmountPaid = loan.AmountPaid.Add(pay)
		loan.Balance = loan.Balance.Sub(pay)
		loan.UpdatedAt = now
		if loan.Balance.IsZero() {
			loan.Status = domain.LoanStatusPaid
			loan.PaidAt = &now
		} else {
			loan.Status = domain.LoanStatusActive
		}
		if err := unit.UpdateLoan(ctx, loan); err != nil {
			return err
		}

		repayment = domain.LoanRepayment{
			ID:            s.ids.Next("RP"),
			LoanID:        loan.ID,
			TransactionID: txn.ID,
			Amount:        pay,
			BalanceBefore: before,
			BalanceAfter:  loan.Balance,
			CreatedAt:     now,
		}
		return unit.InsertLoanRepayment(ctx, repayment)
	})
	if err != nil {
		logger.Error("loan service repay failed", err, logger.Fields{"loanId": loanID})
		return domain.Loan{}, domain.LoanRepayment{}, err
	}

	s.transfers.Publish(ctx, txn)
	logger.Info("loan service repay success", logger.Fields{
		"loanId":        loan.ID,
		"transactionId": txn.ID,
		"balance":       loan.Balance.String(),
		"status":        string(loan.Status),
	})
	return loan, repayment, nil
}

func (s *LoanService) GetLoan(ctx context.Context, loanID string) (domain.Loan, []domain.LoanRepayment, error) {
	loan, err := s.loanRepo.GetByID(ctx, strings.TrimSpace(loanID))
	if err != nil {
		return domain.Loan{}, nil, err
	}
	repayments, err := s.loanRepo.ListRepayments(ctx, loan.ID)
	if err != nil {
		return domain.Loan{}, nil, err
	}
	return loan, repayments, nil
}

func (s *LoanService) ListProducts(ctx context.Context) ([]domain.LoanProduct, error) {
	products, err := s.loanRepo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	active := products[:0]
	for _, p := range products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

// MarkDefaulted moves repayable loans past their due date to DEFAULTED and
// returns how many were changed. Each loan is handled in its own unit.
func (s *LoanService) MarkDefaulted(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := s.loanRepo.ListOverdue(ctx, asOf, s.opts.SweepBatchSize)
	if err != nil {
		logger.Error("loan service default sweep read failed", err, nil)
		return 0, err
	}

	var (
		marked int
		errs   []error
	)
	for _, candidate := range overdue {
		changed := false
		err := s.withinUnit(ctx, func(ctx context.Context, unit repo_interfaces.LedgerUnit) error {
			loan, err := unit.LockLoan(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if !loan.Overdue(asOf) || !loan.Status.CanTransition(domain.LoanStatusDefaulted) {
				return nil
			}
			loan.Status = domain.LoanStatusDefaulted
			loan.UpdatedAt = s.opts.Now().UTC()
			changed = true
			return unit.UpdateLoan(ctx, loan)
		})
		if err != nil {
			logger.Error("loan service default sweep failed for loan", err, logger.Fields{"loanId": candidate.ID})
			errs = append(errs, err)
			continue
		}
		if changed {
			marked++
		}
	}

	logger.Info("loan service default sweep done", logger.Fields{
		"candidates": len(overdue),
		"defaulted":  marked,
	})
	return marked, errors.Join(errs...)
}

func (s *LoanService) withinUnit(ctx context.Context, fn func(ctx context.Context, unit repo_interfaces.LedgerUnit) error) error {
	unitCtx, cancel := context.WithTimeout(ctx, s.opts.UnitTimeout)
	defer cancel()

	if err := s.store.WithinUnit(unitCtx, fn); err != nil {
		return unitError(unitCtx, err, s.opts.UnitTimeout)
	}
	return nil
}

func dueDate(from time.Time, days int) time.Time {
	return from.UTC().AddDate(0, 0, days)
}
