package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
)

type LimitMode string

const (
	LimitModeOff      LimitMode = "off"
	LimitModeAdvisory LimitMode = "advisory"
	LimitModeEnforce  LimitMode = "enforce"
)

type LimitUsage struct {
	Daily   decimal.Decimal
	Monthly decimal.Decimal
}

// LimitPolicy checks a debit against the wallet's daily and monthly limits.
// In advisory mode a breach is only logged.
type LimitPolicy struct {
	Mode LimitMode
}

func (p LimitPolicy) Enabled() bool {
	return p.Mode == LimitModeAdvisory || p.Mode == LimitModeEnforce
}

func (p LimitPolicy) Check(wallet domain.Wallet, usage LimitUsage, total decimal.Decimal) error {
	if !p.Enabled() {
		return nil
	}

	var breach *domain.Error
	switch {
	case wallet.DailyLimit.IsPositive() && usage.Daily.Add(total).GreaterThan(wallet.DailyLimit):
		breach = domain.NewError(domain.KindLimitExceeded, "daily limit of %s exceeded", domain.FormatMoney(wallet.DailyLimit))
	case wallet.MonthlyLimit.IsPositive() && usage.Monthly.Add(total).GreaterThan(wallet.MonthlyLimit):
		breach = domain.NewError(domain.KindLimitExceeded, "monthly limit of %s exceeded", domain.FormatMoney(wallet.MonthlyLimit))
	}
	if breach == nil {
		return nil
	}

	logger.Warn("limit policy breach", logger.Fields{
		"walletId":     wallet.ID,
		"mode":         string(p.Mode),
		"dailyUsage":   usage.Daily.String(),
		"monthlyUsage": usage.Monthly.String(),
		"total":        total.String(),
		"reason":       breach.Message,
	})
	if p.Mode == LimitModeEnforce {
		return breach
	}
	return nil
}

// limitWindows returns the UTC start of the day and month containing t.
func limitWindows(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	month := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return day, month
}
