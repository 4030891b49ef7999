package logger

import (
	"os"

	"github.com/cropwatch-hq/agromet-harvester/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging surface shared by the app layers. The
// Obj helpers log the given object as a single structured field named `key`
// and do not attempt to parse arbitrary kv arrays.
type Logger interface {
	InfoObj(msg, key string, obj any)
	DebugObj(msg, key string, obj any)
	WarnObj(msg, key string, obj any)
	ErrorObj(msg, key string, obj any)
}

// ZapLogger is the production Logger backed by zap.
type ZapLogger struct {
	l *zap.Logger
}

// Init builds a ZapLogger using settings from config.
func Init(cfg *config.Config) (*ZapLogger, error) {
	var level zapcore.Level
	switch cfg.LogLevel {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn", "warning":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return &ZapLogger{l: zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

// Sync flushes any buffered log entries.
func (z *ZapLogger) Sync() error {
	if z == nil || z.l == nil {
		return nil
	}
	return z.l.Sync()
}

func (z *ZapLogger) InfoObj(msg, key string, obj any) {
	if z == nil || z.l == nil {
		return
	}
	z.l.Info(msg, zap.Any(key, obj))
}

func (z *ZapLogger) DebugObj(msg, key string, obj any) {
	if z == nil || z.l == nil {
		return
	}
	z.l.Debug(msg, zap.Any(key, obj))
}

func (z *ZapLogger) WarnObj(msg, key string, obj any) {
	if z == nil || z.l == nil {
		return
	}
	z.l.Warn(msg, zap.Any(key, obj))
}

func (z *ZapLogger) ErrorObj(msg, key string, obj any) {
	if z == nil || z.l == nil {
		return
	}
	z.l.Error(msg, zap.Any(key, obj))
}

// NopLogger discards everything. Useful as a safe default and in tests.
type NopLogger struct{}

func (NopLogger) InfoObj(string, string, any)  {}
func (NopLogger) DebugObj(string, string, any) {}
func (NopLogger) WarnObj(string, string, any)  {}
func (NopLogger) ErrorObj(string, string, any) {}
