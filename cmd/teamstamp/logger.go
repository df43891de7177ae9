package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the diagnostic logger written to stderr.
// Console encoding for terminals, JSON otherwise; Debug with verbose,
// Warn by default, nothing when quiet.
func newLogger(env *Environment, quiet, verbose bool) *zap.Logger {
	if quiet {
		return zap.NewNop()
	}

	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	if env.StderrIsTerminal != nil && env.StderrIsTerminal() {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(env.Stderr), level)
	return zap.New(core)
}
