package services

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

// ChargesService resolves fees from an immutable snapshot of the charge
// bands. Reload swaps the snapshot; fees already stored on transactions are
// never recomputed.
type ChargesService struct {
	bandRepo        repo_interfaces.ChargeBandRepository
	table           atomic.Pointer[domain.BandTable]
	rejectOutOfBand bool
}

var _ service_interfaces.ChargesService = (*ChargesService)(nil)

func NewChargesService(bandRepo repo_interfaces.ChargeBandRepository, rejectOutOfBand bool) *ChargesService {
	s := &ChargesService{
		bandRepo:        bandRepo,
		rejectOutOfBand: rejectOutOfBand,
	}
	empty, _ := domain.NewBandTable(nil)
	s.table.Store(empty)
	return s
}

// Reload reads the active bands and installs them. An invalid configuration
// leaves the current snapshot in place.
func (s *ChargesService) Reload(ctx context.Context) (int, error) {
	logger.Info("charges service reload request", nil)

	bands, err := s.bandRepo.ListActive(ctx)
	if err != nil {
		logger.Error("charges service reload read failed", err, nil)
		return 0, domain.WrapError(domain.KindPersistenceFailure, err, "unable to read charge bands")
	}

	table, err := domain.NewBandTable(bands)
	if err != nil {
		logger.Error("charges service reload rejected configuration", err, logger.Fields{
			"bands": len(bands),
		})
		return 0, err
	}

	s.table.Store(table)
	logger.Info("charges service reload success", logger.Fields{
		"bands": table.Size(),
	})
	return table.Size(), nil
}

func (s *ChargesService) Resolve(kind domain.TransactionKind, amount decimal.Decimal) (decimal.Decimal, error) {
	if !kind.ChargesFee() {
		return decimal.Zero, nil
	}

	table := s.table.Load()
	if fee, ok := table.Resolve(kind, amount); ok {
		return fee, nil
	}
	if s.rejectOutOfBand && table.HasBands(kind) {
		return decimal.Zero, domain.NewError(domain.KindInvalidAmount,
			"no %s charge band covers amount %s", kind, domain.FormatMoney(amount))
	}
	return decimal.Zero, nil
}

func (s *ChargesService) Quote(kind domain.TransactionKind, amount decimal.Decimal) (service_interfaces.ChargeQuote, error) {
	if !kind.Valid() {
		return service_interfaces.ChargeQuote{}, domain.NewError(domain.KindInvalidRequest, "unknown transaction kind %q", kind)
	}
	if err := domain.CheckPositive(amount); err != nil {
		return service_interfaces.ChargeQuote{}, err
	}

	fee, err := s.Resolve(kind, amount)
	if err != nil {
		return service_interfaces.ChargeQuote{}, err
	}

	return service_interfaces.ChargeQuote{
		Kind:        kind,
		Amount:      amount,
		Fee:         fee,
		TotalAmount: amount.Add(fee),
	}, nil
}
