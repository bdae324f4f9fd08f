// Package config holds engine-wide constants. There is no config-loading
// subsystem here — the core has no environment, CLI, or persisted
// configuration surface.
package config

const (
	// DefaultChunkRows is the row count used by the canonical test/example
	// generator throughout this engine's test suite.
	DefaultChunkRows = 16384

	// DefaultBatchRows is a sane SeqScan batch size for tests and examples.
	DefaultBatchRows = 1024
)
