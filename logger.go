package finserve

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// buildLogger is swapped in tests to observe logger flushing.
var buildLogger = newLogger

func newLogger(cfg LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
