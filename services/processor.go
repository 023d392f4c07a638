package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"matchain-gc/models"
	"matchain-gc/storage"
	"matchain-gc/utils"
)

// Submitter sends one record; *client.Client satisfies it.
type Submitter interface {
	Submit(ctx context.Context, rec *models.Record) models.Outcome
}

// TokenRotator is the writer side of the session; *session.Manager satisfies it.
type TokenRotator interface {
	Rotate(newToken string) error
	Invalidated() bool
}

// Backupper copies a file before it is modified.
type Backupper interface {
	Backup(path string) (string, error)
}

// Operator is the interactive console used when a file is held open.
type Operator interface {
	Banner(lines ...string)
	WaitForEnter(prompt string) error
}

// ProcessorMetrics receives per-row and checkpoint counters.
type ProcessorMetrics interface {
	RecordRow(disposition string)
	RecordCheckpoint(ok bool)
}

// ProcessorOptions wires a Processor. Archiver, Operator, Pacer and Metrics may be nil.
type ProcessorOptions struct {
	Store     storage.RecordStore
	Archiver  Backupper
	Submitter Submitter
	Tokens    TokenRotator
	Validator *Validator
	Operator  Operator
	Pacer     *utils.Pacer
	Metrics   ProcessorMetrics
	Logger    *utils.Logger

	CheckpointEvery int
	SaveRetry       utils.RetryConfig
}

// Processor is the BatchProcessor: it drives one file through validation,
// submission and checkpointing.
type Processor struct {
	store      storage.RecordStore
	archiver   Backupper
	submitter  Submitter
	tokens     TokenRotator
	validator  *Validator
	normalizer *Normalizer
	operator   Operator
	pacer      *utils.Pacer
	metrics    ProcessorMetrics
	logger     *utils.Logger

	checkpointEvery int
	saveRetry       utils.RetryConfig
}

// NewProcessor creates a Processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	every := opts.CheckpointEvery
	if every <= 0 {
		every = 10
	}
	validator := opts.Validator
	if validator == nil {
		validator = NewValidator(nil)
	}
	retry := opts.SaveRetry
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.BaseDelay <= 0 {
		retry.BaseDelay = 2 * time.Second
	}
	if retry.Logger == nil {
		retry.Logger = logger
	}
	return &Processor{
		store:           opts.Store,
		archiver:        opts.Archiver,
		submitter:       opts.Submitter,
		tokens:          opts.Tokens,
		validator:       validator,
		normalizer:      NewNormalizer(),
		operator:        opts.Operator,
		pacer:           opts.Pacer,
		metrics:         opts.Metrics,
		logger:          logger,
		checkpointEvery: every,
		saveRetry:       retry,
	}
}

type rowResult struct {
	status      string
	ok          bool
	responded   bool
	interrupted bool
	sessionLost bool
}

// ProcessFile processes every row of path in order. On ErrInterrupted and
// ErrSessionLost the returned statistics are still valid and state has been
// flushed to the store.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*models.RunStatistics, error) {
	name := filepath.Base(path)
	p.logger.Info("[processor] Processing file: %s", name)

	sheet, err := p.load(ctx, path)
	if err != nil {
		return nil, err
	}

	if p.archiver != nil {
		if dst, err := p.archiver.Backup(path); err != nil {
			p.logger.Error("[processor] Backup of %s failed, continuing: %v", name, err)
		} else {
			p.logger.Info("[processor] Backup created: %s", dst)
		}
	}

	if missing := sheet.MissingColumns(models.RequiredColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w in %s: %s", ErrMissingColumns, name, strings.Join(missing, ", "))
	}
	sheet.EnsureColumn(models.ColStatus)

	total := sheet.Len()
	stats := models.NewRunStatistics(name, total)
	p.logger.Info("[processor] [%s] %d rows", name, total)

	dirty := false
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			return p.interrupt(path, sheet, stats)
		}
		pos := i + 1
		pct := float64(pos) / float64(total) * 100
		rec := p.normalizer.Record(sheet, i)

		var res rowResult
		if models.AlreadyDone(rec.Status) {
			p.logger.Info("[processor] [%s] Row %d/%d (%.2f%%) status %q, skipped", name, pos, total, pct, rec.Status)
			stats.Skipped++
			p.recordRow("skipped")
		} else {
			p.logger.Info("[processor] [%s] Row %d/%d (%.2f%%) processing...", name, pos, total, pct)
			res = p.processRow(ctx, rec)
			if res.interrupted {
				return p.interrupt(path, sheet, stats)
			}

			sheet.SetCell(i, models.ColStatus, res.status)
			dirty = true
			if res.ok {
				stats.Success++
			} else {
				stats.Failed++
			}
			p.logger.Info("[processor] [%s] Row %d status: %s", name, pos, res.status)

			if res.sessionLost {
				p.logger.Error("[processor] Session could not be recovered, stopping after row %d", pos)
				p.checkpoint(context.Background(), path, sheet)
				stats.Finish()
				return stats, ErrSessionLost
			}
		}

		if dirty && (pos%p.checkpointEvery == 0 || pos == total) {
			if p.checkpoint(ctx, path, sheet) {
				dirty = false
			}
		}

		if res.responded && p.pacer != nil {
			// A cancelled pause is picked up at the top of the loop.
			_ = p.pacer.Pause(ctx)
		}
	}

	stats.Finish()
	p.logger.Info("[processor] [%s] Done: %d success, %d failed, %d skipped",
		name, stats.Success, stats.Failed, stats.Skipped)
	return stats, nil
}

// processRow validates and, when valid, submits one record.
func (p *Processor) processRow(ctx context.Context, rec *models.Record) rowResult {
	if errs := p.validator.Validate(rec); len(errs) > 0 {
		msg := JoinErrors(errs)
		p.logger.Warn("[processor] Row %d failed validation: %s", rec.Index+1, msg)
		p.recordRow("invalid")
		return rowResult{status: msg}
	}

	out := p.submitter.Submit(ctx, rec)
	if out.Interrupted {
		return rowResult{interrupted: true}
	}

	res := rowResult{status: out.StatusText(), responded: out.Responded}
	switch out.Kind {
	case models.OutcomeSuccess:
		res.ok = true
		if err := p.tokens.Rotate(out.NewToken); err != nil {
			p.logger.Error("[processor] Could not store rotated token: %v", err)
		}
		p.recordRow("success")
	case models.OutcomeAuthInvalid:
		res.sessionLost = p.tokens.Invalidated()
		p.recordRow("failed")
	default:
		p.recordRow("failed")
	}
	return res
}

// load reads path, asking the operator to close the file while it is locked.
func (p *Processor) load(ctx context.Context, path string) (*models.Sheet, error) {
	for {
		sheet, err := p.store.Load(path)
		if err == nil {
			return sheet, nil
		}
		if !errors.Is(err, storage.ErrFileLocked) || p.operator == nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		if ctx.Err() != nil {
			return nil, ErrInterrupted
		}
		p.operator.Banner(
			fmt.Sprintf("ERROR: File '%s' is open in another program!", filepath.Base(path)),
			"Please CLOSE the file so it can be read.",
		)
		if err := p.operator.WaitForEnter("Press ENTER once the file is closed to retry..."); err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
	}
}

// checkpoint persists the sheet with retries; failure is logged, not returned.
func (p *Processor) checkpoint(ctx context.Context, path string, sheet *models.Sheet) bool {
	err := p.saveRetry.Do(ctx, "save "+filepath.Base(path), func() error {
		return p.store.Save(path, sheet)
	})
	if p.metrics != nil {
		p.metrics.RecordCheckpoint(err == nil)
	}
	if err != nil {
		p.logger.Error("[processor] CHECKPOINT FAILED, progress only in memory: %v", err)
		return false
	}
	p.logger.Info("[processor] [%s] Progress saved", filepath.Base(path))
	return true
}

// interrupt flushes the in-memory state and finalises the statistics.
func (p *Processor) interrupt(path string, sheet *models.Sheet, stats *models.RunStatistics) (*models.RunStatistics, error) {
	p.logger.Warn("[processor] !!! PROCESS STOPPED BY USER !!!")
	p.logger.Info("[processor] Saving current state before exit...")
	p.checkpoint(context.Background(), path, sheet)
	stats.Interrupted = true
	stats.Finish()
	return stats, ErrInterrupted
}

func (p *Processor) recordRow(disposition string) {
	if p.metrics != nil {
		p.metrics.RecordRow(disposition)
	}
}
