package services

import "errors"

var (
	// ErrMissingColumns aborts one file whose header lacks required columns.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrInterrupted means the operator cancelled the run; state was flushed.
	ErrInterrupted = errors.New("processing interrupted")
	// ErrSessionLost means no valid session could be recovered; the run stops.
	ErrSessionLost = errors.New("session lost")
)
