// Package log provides structured event capture for WISP provisioning.
//
// This package defines the Logger interface and Event types for recording
// what the wireless stack reported and how the provisioning module reacted.
// It is separate from operational logging (slog) - event capture provides a
// machine-readable trace of a provisioning run for later analysis.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/wisp/device.wlog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/wisp/device.wlog"),
//	)
//
// # File Format
//
// Log files use CBOR encoding with .wlog extension; Reader streams them
// back with optional filtering.
package log
