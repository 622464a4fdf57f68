package logger

import (
	"go.uber.org/zap"
)

// New builds the process logger. Encoding "console" switches to the human
// readable encoder; anything else keeps zap's JSON production encoder.
func New(verbosity, encoding string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}
	config.Level = level
	if encoding == "console" {
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	// Sampling hides bursts of per-buffer debug entries during stress runs.
	config.Sampling = nil
	return config.Build()
}
