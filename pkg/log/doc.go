// Package log provides structured bus capture for aSysBus nodes.
//
// This package defines the Logger interface and Event types for capturing
// bus activity at the transport, node and module layers. It is separate
// from operational logging (slog): capture provides a complete
// machine-readable trace of what crossed the node.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.Capture = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.Capture, _ = log.NewFileLogger("/var/log/asb/node.alog")
//
//	// Both: use MultiLogger
//	cfg.Capture = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Transport: raw frame bytes or CAN identifiers (FrameEvent)
//   - Node: routed packets (PacketEvent) and slot changes (StateChangeEvent)
//   - Module: packets consumed or emitted by modules
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .alog
// extension. The asb-log CLI tool provides viewing, filtering and replay.
package log
