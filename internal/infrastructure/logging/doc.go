// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Logs go to stderr by default so the CLI can keep stdout for generated text.
//
// Example Usage:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Registered service", zap.String("name", "gpt2"))
//	dispatcher := service.NewDispatcher(registry, logger.Component("dispatch"))
package logging
