package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "KES", cfg.Currency)
	assert.Equal(t, OutOfBandZero, cfg.ChargeOutOfBandPolicy)
	assert.Equal(t, OverpaymentClamp, cfg.LoanOverpaymentPolicy)
	assert.Equal(t, LimitPolicyAdvisory, cfg.LimitPolicy)
	assert.Equal(t, 10*time.Second, cfg.UnitTimeout)
	assert.Equal(t, "0.3", cfg.WithdrawalCommissionShare.String())
	assert.Equal(t, "150000", cfg.MaxTransactionAmount.String())
	assert.Contains(t, cfg.DatabaseDSN, "dbname=mpesa_ledger")
	assert.Contains(t, cfg.DatabaseDSN, "sslmode=disable")
	assert.Equal(t, "mpesa-ledger", cfg.OtelServiceName)
	assert.Empty(t, cfg.OtelExporterEndpoint)
	assert.Equal(t, 1.0, cfg.OtelSampleRatio)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("LIMIT_POLICY", "Enforce")
	t.Setenv("UNIT_TIMEOUT_SECONDS", "3")
	t.Setenv("FEE_SINK_WALLET_ID", " W-FEES ")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", " otel-collector:4317 ")
	t.Setenv("OTEL_TRACES_SAMPLE_RATIO", "0.25")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, LimitPolicyEnforce, cfg.LimitPolicy)
	assert.Equal(t, 3*time.Second, cfg.UnitTimeout)
	assert.Equal(t, "W-FEES", cfg.FeeSinkWalletID)
	assert.Equal(t, "otel-collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.25, cfg.OtelSampleRatio)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHARGE_OUT_OF_BAND_POLICY=reject\nCURRENCY=ugx\n"), 0o600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, OutOfBandReject, cfg.ChargeOutOfBandPolicy)
	assert.Equal(t, "UGX", cfg.Currency)
}

func TestLoadRejectsUnknownPolicies(t *testing.T) {
	t.Setenv("LOAN_OVERPAYMENT_POLICY", "refund")
	t.Setenv("WITHDRAWAL_COMMISSION_SHARE", "1.5")

	_, err := LoadFrom(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOAN_OVERPAYMENT_POLICY")
	assert.Contains(t, err.Error(), "WITHDRAWAL_COMMISSION_SHARE")
}

func TestNormalizeConnectionString(t *testing.T) {
	got := normalizeConnectionString("Host=db;Port=5433;Database=ledger;Username=svc;Password=pw;CommandTimeout=15")
	assert.Equal(t, "host=db port=5433 dbname=ledger user=svc password=pw statement_timeout=15s sslmode=disable", got)

	url := "postgres://svc:pw@db:5432/ledger?sslmode=require"
	assert.Equal(t, url, normalizeConnectionString(url))
}
