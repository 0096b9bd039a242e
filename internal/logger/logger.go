package logger

import (
	"fmt"

	"coffeeshop/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Newはzapのloggerを作る。devはコンソール、それ以外はJSON。
func New(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}

	var zc zap.Config
	if cfg.IsDev() {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
