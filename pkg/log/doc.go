// Package log provides structured protocol logging for LifeSOS connections.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, protocol, session).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a capture file
//	cfg.Logger, _ = log.NewFileLogger("/var/log/lifesos/baseunit.lslog")
//
//	// Both: use MultiLogger
//	capture, _ := log.NewFileLogger("/var/log/lifesos/baseunit.lslog")
//	cfg.Logger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), capture)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw text lines (LineEvent)
//   - Protocol: Decoded messages (MessageEvent)
//   - Session: State changes (StateChangeEvent)
//
// Keep-alive traffic is tagged CategoryControl so it can be filtered out.
// Any password in a captured command is masked before the event is recorded.
//
// # File Format
//
// Log files use CBOR encoding with nanosecond timestamps. Reader streams
// events back with optional filtering by connection, direction, layer,
// category, time range or device.
package log
