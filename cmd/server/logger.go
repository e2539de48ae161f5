package main

import (
	"github.com/septivank/lte-signal-map/internal/config"
	"github.com/septivank/lte-signal-map/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
