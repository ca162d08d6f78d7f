// Package logging constructs the single zap.Logger each component
// (store, knowledge, extraction, agentstore) is handed at
// construction. There is no package-level logger: every caller owns
// and threads its own instance.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger at the given level ("debug", "info", "warn",
// "error"). json selects JSON encoding over the human-readable
// console encoder.
func New(level string, json bool) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if !json {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// NoOp returns a logger that discards everything, for callers that
// don't supply one explicitly.
func NoOp() *zap.Logger {
	return zap.NewNop()
}
