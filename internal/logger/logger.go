// Package logger builds the process-wide zap logger used by the CLI.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production logger at Info level, or Debug when verbose.
func New(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.Encoding = "console"
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true
	config.DisableCaller = true

	logger, err := config.Build()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}

	return logger
}
