package cli

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"tokcount/config"
)

// newLogger builds a zap logger that writes to w (stderr in practice) so
// stdout carries only the summary line.
func newLogger(cfg config.LoggingConfig, w io.Writer) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.WarnLevel
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
}
