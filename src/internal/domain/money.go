package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const MoneyScale int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half-up to two minor units. decimal.Round rounds half
// away from zero, which is half-up for the non-negative values money takes.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ParseMoney parses a decimal amount and rejects anything finer than a cent.
func ParseMoney(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, NewError(KindInvalidAmount, "amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, WrapError(KindInvalidAmount, err, "amount must be numeric")
	}
	if err := CheckScale(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func CheckScale(d decimal.Decimal) error {
	if !d.Equal(d.Round(MoneyScale)) {
		return NewError(KindInvalidAmount, "amount %s has more than two decimal places", d.String())
	}
	return nil
}

// CheckPositive rejects zero, negative and sub-cent amounts.
func CheckPositive(d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewError(KindInvalidAmount, "amount must be greater than zero")
	}
	return CheckScale(d)
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
