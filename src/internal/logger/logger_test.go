package logger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	previous := base.Load()
	Use(zap.New(core))
	t.Cleanup(func() { Use(previous) })
	return logs
}

func TestInfoMasksSensitiveFields(t *testing.T) {
	logs := observe(t)

	Info("transfer service request", Fields{
		"transactionPin": "1234",
		"amount":         decimal.RequireFromString("200.00"),
		"walletId":       "W1",
	})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "******", ctx["transactionPin"])
	assert.Equal(t, "200", ctx["amount"])
	assert.Equal(t, "W1", ctx["walletId"])
}

func TestErrorAttachesError(t *testing.T) {
	logs := observe(t)

	Error("ledger unit failed", errors.New("deadline exceeded"), Fields{"transactionId": "SM1"})

	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "deadline exceeded", entry.ContextMap()["error"])
}

func TestSanitizePayloadMasksNestedKeys(t *testing.T) {
	payload := map[string]any{
		"amount": "10.00",
		"auth": map[string]any{
			"pin":      "0000",
			"password": "secret",
		},
	}

	got := SanitizePayload(payload).(map[string]any)
	auth := got["auth"].(map[string]any)

	assert.Equal(t, "******", auth["pin"])
	assert.Equal(t, "******", auth["password"])
	assert.Equal(t, "10.00", got["amount"])
}
