package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/steve-ongera/mpesa-ledger/src/internal/domain"
)

const maxRequestIDLength = 64

type fieldErrors []string

func (e *fieldErrors) add(msg string) {
	*e = append(*e, msg)
}

func (e *fieldErrors) required(name, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(name + " is required")
	}
}

// requestID checks the client idempotency key, sent either as the
// Idempotency-Key header or the requestId field.
func (e *fieldErrors) requestID(value string) {
	switch v := strings.TrimSpace(value); {
	case v == "":
		e.add("requestId or Idempotency-Key header is required")
	case len(v) > maxRequestIDLength:
		e.add("requestId must not exceed 64 characters")
	}
}

func (e *fieldErrors) amount(name, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(name + " is required")
		return
	}
	d, err := domain.ParseMoney(value)
	if err != nil {
		e.add(name + " must be numeric with at most two decimal places")
		return
	}
	if !d.IsPositive() {
		e.add(name + " must be greater than zero")
	}
}

func (e fieldErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return errors.New(strings.Join(e, "; "))
}

// Errors splits a Validate error back into its messages.
func Errors(err error) []string {
	if err == nil {
		return nil
	}
	return strings.Split(err.Error(), "; ")
}

// Amount parses a value that already passed Validate.
func Amount(raw string) decimal.Decimal {
	d, _ := domain.ParseMoney(raw)
	return d
}

func isPhoneNumber(value string) bool {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "+")
	return len(trimmed) >= 9 && len(trimmed) <= 15 && digitsOnly(trimmed)
}

func digitsOnly(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return value != ""
}

func money(d decimal.Decimal) string {
	return domain.FormatMoney(d)
}
