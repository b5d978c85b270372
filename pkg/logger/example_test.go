package logger_test

import (
	"errors"

	"github.com/wonny/worldmodel/pkg/config"
	"github.com/wonny/worldmodel/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	// Component-scoped logger
	alignLog := log.WithComponent("s0_data.aligner")
	alignLog.WithFields(map[string]interface{}{
		"asset":      "German 10Y yield",
		"total_days": 6500,
	}).Warn("Missing ticker data, column filled with missing marker")
}

// Example_withError demonstrates error logging
func Example_withError() {
	log := logger.New(&config.Config{Env: "production", LogLevel: "error", LogFormat: "json"})

	err := errors.New("no assets with available returns")
	log.WithError(err).
		WithField("return_field", "log_return_1d").
		Error("Model fit failed")
}
