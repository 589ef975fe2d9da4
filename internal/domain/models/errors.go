package models

import "errors"

// Pipeline error taxonomy. Callers branch with errors.Is; the HTTP edge maps
// these onto structured responses.
var (
	// ErrNoValidData: the input series is empty or every value is missing.
	// The whole request fails fast, no partial output.
	ErrNoValidData = errors.New("no valid data points found")

	// ErrInsufficientData: fewer timestamps than the operation needs
	// (sequence_length+1 for gap filling, the ML floor for the ML detector).
	ErrInsufficientData = errors.New("insufficient data points")

	// ErrModelNotReady: prediction requested before Fit or Load.
	ErrModelNotReady = errors.New("model not trained or loaded")

	// ErrModelMismatch: a persisted bundle does not match the current
	// configuration (feature count or sequence length). Caller must retrain.
	ErrModelMismatch = errors.New("model bundle does not match configuration")

	// ErrDuplicateTimestamp: input series has two records for one hour.
	ErrDuplicateTimestamp = errors.New("duplicate timestamp in series")
)
