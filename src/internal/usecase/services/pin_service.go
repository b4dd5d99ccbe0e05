package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/steve-ongera/mpesa-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
	"golang.org/x/crypto/bcrypt"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

type PinService struct {
	walletRepo repo_interfaces.WalletRepository
	cost       int
}

var _ service_interfaces.PinService = (*PinService)(nil)

func NewPinService(walletRepo repo_interfaces.WalletRepository) *PinService {
	return &PinService{walletRepo: walletRepo, cost: bcrypt.DefaultCost}
}

// NewPinServiceWithCost is used by tests to keep hashing fast.
func NewPinServiceWithCost(walletRepo repo_interfaces.WalletRepository, cost int) *PinService {
	return &PinService{walletRepo: walletRepo, cost: cost}
}

func (s *PinService) SetPin(ctx context.Context, ownerID string, pin string) error {
	pin = strings.TrimSpace(pin)
	if !pinPattern.MatchString(pin) {
		return domain.NewError(domain.KindInvalidRequest, "pin must be 4 digits")
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, strings.TrimSpace(ownerID))
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost)
	if err != nil {
		logger.Error("pin service hash failed", err, logger.Fields{"walletId": wallet.ID})
		return domain.WrapError(domain.KindPersistenceFailure, err, "unable to set pin right now")
	}
	if err := s.walletRepo.SetPinHash(ctx, wallet.ID, string(hashed)); err != nil {
		return err
	}

	logger.Info("pin service set pin success", logger.Fields{"walletId": wallet.ID})
	return nil
}

func (s *PinService) VerifyPin(ctx context.Context, ownerID string, pin string) error {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return domain.NewError(domain.KindInvalidRequest, "pin is required")
	}

	wallet, err := s.walletRepo.GetByOwner(ctx, strings.TrimSpace(ownerID))
	if err != nil {
		return err
	}
	storedPinHash, err := s.walletRepo.GetPinHash(ctx, wallet.ID)
	if err != nil {
		return err
	}
	if storedPinHash == "" {
		return domain.NewError(domain.KindForbidden, "transaction pin has not been set")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(storedPinHash), []byte(pin)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			logger.Info("pin service verify pin mismatch", logger.Fields{"walletId": wallet.ID})
			return domain.NewError(domain.KindForbidden, "provided pin does not match")
		}
		logger.Error("pin service verify pin compare failed", err, logger.Fields{"walletId": wallet.ID})
		return domain.WrapError(domain.KindPersistenceFailure, err, "unable to verify pin right now")
	}
	return nil
}
