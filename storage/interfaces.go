package storage

import (
	"context"
	"errors"

	"matchain-gc/models"
)

// ErrFileLocked means the file is held open by another program (typically a
// spreadsheet editor). The caller should ask the operator to close it and retry.
var ErrFileLocked = errors.New("storage: file is locked by another program")

// RecordStore loads and persists the tabular record file.
type RecordStore interface {
	Load(path string) (*models.Sheet, error)
	Save(path string, sheet *models.Sheet) error
}

// RunLedger persists per-file statistics of a run.
type RunLedger interface {
	Write(ctx context.Context, runID string, stats []*models.RunStatistics) error
	Close() error
}
