// Package logging builds the zap logger shared by all components.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger. Set LOG_DEVEL=1 behaviour by
// passing devel=true from the entrypoint to get console output.
func New(devel bool) (*zap.Logger, error) {
	if devel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
