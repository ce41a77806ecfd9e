// Copyright 2024 The op-sequencer Authors
// Licensed under the Apache License, Version 2.0.

// Package logging constructs the sequencer's structured logger. zap is
// carried from the teacher's go.mod (go.uber.org/zap) as the ecosystem's
// standard structured-logging library; the components that log (the
// sequencer Node, the reorg Watcher and the RPC dispatcher) take a
// *zap.SugaredLogger rather than using the stdlib log package.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile zap logger (JSON encoding, ISO8601
// timestamps, caller info) at the given level name ("debug", "info",
// "warn", "error"; unrecognized values fall back to "info").
func New(levelName string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(levelName))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
