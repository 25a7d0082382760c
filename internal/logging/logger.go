// Package logging constructs the injected logr.Logger capability every
// engine component holds instead of calling log.Printf directly, per
// spec §9's "ScriptBlock logger injected as a parameter" redesign note.
package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures logger construction.
type Options struct {
	Development bool
	Verbose     bool
}

// New builds a logr.Logger backed by zap, grounded on
// backube-volsync/diskrsync-tcp/main.go's zap.Options/zap.New setup —
// adapted to a direct zap+zapr pairing since this repo has no
// controller-runtime dependency to justify.
func New(opts Options) logr.Logger {
	var zcfg zap.Config
	if opts.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if opts.Verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zcfg.OutputPaths = []string{"stdout"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := zcfg.Build()
	if err != nil {
		// Logger construction failure leaves us with nothing to log to;
		// fall back to zap's default production logger, or a no-op logger
		// if that also fails, rather than panic in a library path.
		fallback, _ := zap.NewProduction()
		if fallback == nil {
			return logr.Discard()
		}
		zl = fallback
	}
	return zapr.NewLogger(zl)
}

// NewFileLogger mirrors New but additionally tees output to the file at
// logFilePath (opened for append), matching
// GlobalConfig.EnableFileLogging/LogDirectory.
func NewFileLogger(opts Options, logFilePath string) (logr.Logger, func(), error) {
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return logr.Discard(), func() {}, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(encoder, zapcore.AddSync(f), level),
	)
	zl := zap.New(core)
	closer := func() {
		_ = zl.Sync()
		_ = f.Close()
	}
	return zapr.NewLogger(zl), closer, nil
}
