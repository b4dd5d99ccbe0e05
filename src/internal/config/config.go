package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=mpesa_ledger;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	OutOfBandZero   = "zero"
	OutOfBandReject = "reject"

	OverpaymentClamp  = "clamp"
	OverpaymentReject = "reject"

	LimitPolicyOff      = "off"
	LimitPolicyAdvisory = "advisory"
	LimitPolicyEnforce  = "enforce"
)

type Config struct {
	ServerPort    string `mapstructure:"SERVER_PORT"`
	Store         string `mapstructure:"STORE"`
	DatabaseDSN   string `mapstructure:"DATABASE_DSN"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`

	ChannelID  string `mapstructure:"CHANNEL_ID"`
	ChannelKey string `mapstructure:"CHANNEL_KEY"`
	JWTSecret  string `mapstructure:"JWT_SECRET"`

	RequireTransactionPIN bool `mapstructure:"REQUIRE_TRANSACTION_PIN"`

	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	NotificationExchange string `mapstructure:"NOTIFICATION_EXCHANGE"`

	RedisURL           string `mapstructure:"REDIS_URL"`
	RateLimitPrefix    string `mapstructure:"RATE_LIMIT_PREFIX"`
	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	UnitTimeoutSeconds int    `mapstructure:"UNIT_TIMEOUT_SECONDS"`
	Currency           string `mapstructure:"CURRENCY"`
	FeeSinkWalletID    string `mapstructure:"FEE_SINK_WALLET_ID"`

	ChargeOutOfBandPolicy string `mapstructure:"CHARGE_OUT_OF_BAND_POLICY"`
	LoanOverpaymentPolicy string `mapstructure:"LOAN_OVERPAYMENT_POLICY"`
	LimitPolicy           string `mapstructure:"LIMIT_POLICY"`

	WithdrawalCommissionShareRaw string `mapstructure:"WITHDRAWAL_COMMISSION_SHARE"`
	MinTransactionAmountRaw      string `mapstructure:"MIN_TRANSACTION_AMOUNT"`
	MaxTransactionAmountRaw      string `mapstructure:"MAX_TRANSACTION_AMOUNT"`

	ChargeBandRefreshSchedule string `mapstructure:"CHARGE_BAND_REFRESH_SCHEDULE"`
	LoanDefaultSweepSchedule  string `mapstructure:"LOAN_DEFAULT_SWEEP_SCHEDULE"`

	OtelServiceName      string  `mapstructure:"OTEL_SERVICE_NAME"`
	OtelExporterEndpoint string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelSampleRatio      float64 `mapstructure:"OTEL_TRACES_SAMPLE_RATIO"`
	Environment          string  `mapstructure:"ENVIRONMENT"`

	UnitTimeout               time.Duration   `mapstructure:"-"`
	WithdrawalCommissionShare decimal.Decimal `mapstructure:"-"`
	MinTransactionAmount      decimal.Decimal `mapstructure:"-"`
	MaxTransactionAmount      decimal.Decimal `mapstructure:"-"`
}

var keys = []string{
	"SERVER_PORT", "STORE", "DATABASE_DSN", "MIGRATIONS_DIR", "LOG_LEVEL",
	"CHANNEL_ID", "CHANNEL_KEY", "JWT_SECRET", "REQUIRE_TRANSACTION_PIN",
	"RABBITMQ_URL", "NOTIFICATION_EXCHANGE",
	"REDIS_URL", "RATE_LIMIT_PREFIX", "RATE_LIMIT_PER_MINUTE",
	"UNIT_TIMEOUT_SECONDS", "CURRENCY", "FEE_SINK_WALLET_ID",
	"CHARGE_OUT_OF_BAND_POLICY", "LOAN_OVERPAYMENT_POLICY", "LIMIT_POLICY",
	"WITHDRAWAL_COMMISSION_SHARE", "MIN_TRANSACTION_AMOUNT", "MAX_TRANSACTION_AMOUNT",
	"CHARGE_BAND_REFRESH_SCHEDULE", "LOAN_DEFAULT_SWEEP_SCHEDULE",
	"OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_TRACES_SAMPLE_RATIO", "ENVIRONMENT",
}

func Load() (Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads an optional .env file in path and lets the environment
// override it.
func LoadFrom(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("STORE", StorePostgres)
	v.SetDefault("DATABASE_DSN", defaultConnectionString)
	v.SetDefault("MIGRATIONS_DIR", filepath.Join("src", "migrations"))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CHANNEL_ID", "LedgerOps")
	v.SetDefault("CHANNEL_KEY", "LedgerOpsKey001")
	v.SetDefault("JWT_SECRET", "local-development-secret")
	v.SetDefault("REQUIRE_TRANSACTION_PIN", false)
	v.SetDefault("NOTIFICATION_EXCHANGE", "ledger.events")
	v.SetDefault("RATE_LIMIT_PREFIX", "mpesa:rate_limit")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("UNIT_TIMEOUT_SECONDS", 10)
	v.SetDefault("CURRENCY", "KES")
	v.SetDefault("CHARGE_OUT_OF_BAND_POLICY", OutOfBandZero)
	v.SetDefault("LOAN_OVERPAYMENT_POLICY", OverpaymentClamp)
	v.SetDefault("LIMIT_POLICY", LimitPolicyAdvisory)
	v.SetDefault("WITHDRAWAL_COMMISSION_SHARE", "0.30")
	v.SetDefault("MIN_TRANSACTION_AMOUNT", "1")
	v.SetDefault("MAX_TRANSACTION_AMOUNT", "150000")
	v.SetDefault("CHARGE_BAND_REFRESH_SCHEDULE", "@every 5m")
	v.SetDefault("LOAN_DEFAULT_SWEEP_SCHEDULE", "0 1 * * *")
	v.SetDefault("OTEL_SERVICE_NAME", "mpesa-ledger")
	v.SetDefault("OTEL_TRACES_SAMPLE_RATIO", 1.0)
	v.SetDefault("ENVIRONMENT", "local")

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.DatabaseDSN = normalizeConnectionString(strings.TrimSpace(c.DatabaseDSN))
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	c.FeeSinkWalletID = strings.TrimSpace(c.FeeSinkWalletID)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.RabbitMQURL = strings.TrimSpace(c.RabbitMQURL)
	c.OtelExporterEndpoint = strings.TrimSpace(c.OtelExporterEndpoint)
	c.ChargeOutOfBandPolicy = strings.ToLower(strings.TrimSpace(c.ChargeOutOfBandPolicy))
	c.LoanOverpaymentPolicy = strings.ToLower(strings.TrimSpace(c.LoanOverpaymentPolicy))
	c.LimitPolicy = strings.ToLower(strings.TrimSpace(c.LimitPolicy))

	var errs []string
	if c.Store != StorePostgres && c.Store != StoreMemory {
		errs = append(errs, fmt.Sprintf("STORE must be %q or %q", StorePostgres, StoreMemory))
	}
	if c.ChargeOutOfBandPolicy != OutOfBandZero && c.ChargeOutOfBandPolicy != OutOfBandReject {
		errs = append(errs, "CHARGE_OUT_OF_BAND_POLICY must be zero or reject")
	}
	if c.LoanOverpaymentPolicy != OverpaymentClamp && c.LoanOverpaymentPolicy != OverpaymentReject {
		errs = append(errs, "LOAN_OVERPAYMENT_POLICY must be clamp or reject")
	}
	switch c.LimitPolicy {
	case LimitPolicyOff, LimitPolicyAdvisory, LimitPolicyEnforce:
	default:
		errs = append(errs, "LIMIT_POLICY must be off, advisory or enforce")
	}
	if c.UnitTimeoutSeconds <= 0 {
		errs = append(errs, "UNIT_TIMEOUT_SECONDS must be positive")
	}
	if c.OtelSampleRatio < 0 || c.OtelSampleRatio > 1 {
		errs = append(errs, "OTEL_TRACES_SAMPLE_RATIO must be between 0 and 1")
	}
	if len(c.Currency) != 3 {
		errs = append(errs, "CURRENCY must be 3 characters")
	}

	var err error
	if c.WithdrawalCommissionShare, err = decimal.NewFromString(strings.TrimSpace(c.WithdrawalCommissionShareRaw)); err != nil ||
		c.WithdrawalCommissionShare.IsNegative() || c.WithdrawalCommissionShare.GreaterThan(decimal.NewFromInt(1)) {
		errs = append(errs, "WITHDRAWAL_COMMISSION_SHARE must be a fraction between 0 and 1")
	}
	if c.MinTransactionAmount, err = decimal.NewFromString(strings.TrimSpace(c.MinTransactionAmountRaw)); err != nil || !c.MinTransactionAmount.IsPositive() {
		errs = append(errs, "MIN_TRANSACTION_AMOUNT must be a positive amount")
	}
	if c.MaxTransactionAmount, err = decimal.NewFromString(strings.TrimSpace(c.MaxTransactionAmountRaw)); err != nil || c.MaxTransactionAmount.LessThan(c.MinTransactionAmount) {
		errs = append(errs, "MAX_TRANSACTION_AMOUNT must not be below MIN_TRANSACTION_AMOUNT")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	c.UnitTimeout = time.Duration(c.UnitTimeoutSeconds) * time.Second
	return nil
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
