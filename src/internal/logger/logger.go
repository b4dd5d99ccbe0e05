package logger

import (
	"encoding/json"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]any

var sensitiveKeys = map[string]struct{}{
	"pin":                  {},
	"transactionpin":       {},
	"transaction_pin":      {},
	"transactionpinhash":   {},
	"transaction_pin_hash": {},
	"password":             {},
	"authorization":        {},
	"token":                {},
}

var base atomic.Pointer[zap.Logger]

func init() {
	l, err := newProduction("info")
	if err != nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

// Init replaces the process logger with a JSON production logger at level.
func Init(level string) error {
	l, err := newProduction(level)
	if err != nil {
		return err
	}
	base.Store(l)
	return nil
}

// Use installs l as the process logger. Tests pass an observer-backed logger.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

func Sync() {
	_ = base.Load().Sync()
}

func newProduction(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build(zap.AddCallerSkip(1))
}

func Debug(message string, fields Fields) {
	base.Load().Debug(message, toZap(fields)...)
}

func Info(message string, fields Fields) {
	base.Load().Info(message, toZap(fields)...)
}

func Warn(message string, fields Fields) {
	base.Load().Warn(message, toZap(fields)...)
}

func Error(message string, err error, fields Fields) {
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	base.Load().Error(message, zf...)
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func toZap(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(fields))
	for _, k := range keys {
		if isSensitiveKey(k) {
			out = append(out, zap.String(k, "******"))
			continue
		}
		switch v := fields[k].(type) {
		case string, bool, int, int32, int64, float64:
			out = append(out, zap.Any(k, v))
		case error:
			out = append(out, zap.String(k, v.Error()))
		case interface{ String() string }:
			out = append(out, zap.String(k, v.String()))
		default:
			out = append(out, zap.Any(k, sanitizeValue(v)))
		}
	}
	return out
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
