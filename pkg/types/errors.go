package types

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNotFound is returned when a requested record is not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when input is rejected before any write
	// (self-pair, invalid label, missing referenced item).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderNotAvailable is returned when an embedding backend is
	// unreachable. Callers may retry.
	ErrProviderNotAvailable = errors.New("provider not available")

	// ErrDimensionMismatch is returned by vector operations when the
	// operands have different lengths.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrStoreFailed is returned when a store operation fails for reasons
	// other than validation. Callers may retry.
	ErrStoreFailed = errors.New("store operation failed")

	// ErrModelNotActive is returned when a model-only operation is
	// requested and no trained model is active.
	ErrModelNotActive = errors.New("no active model")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("embedding failed")
)
