package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"matchain-gc/models"
	"matchain-gc/storage"
	"matchain-gc/utils"
)

// officeLockPrefix marks the owner files spreadsheet editors create next to open workbooks.
const officeLockPrefix = "~$"

// FileProcessor processes one input file; *Processor satisfies it.
type FileProcessor interface {
	ProcessFile(ctx context.Context, path string) (*models.RunStatistics, error)
}

// Mover relocates a fully processed file.
type Mover interface {
	MoveToProcessed(path string) (string, error)
}

// RunnerOptions wires a Runner. Mover, Ledger and Operator may be nil.
type RunnerOptions struct {
	InputDir   string
	Extensions []string
	RunID      string

	Processor FileProcessor
	Mover     Mover
	Ledger    storage.RunLedger
	Operator  Operator
	Logger    *utils.Logger
}

// Runner drives every input file through the Processor.
type Runner struct {
	opts   RunnerOptions
	logger *utils.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".xlsx", ".csv"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Runner{opts: opts, logger: logger}
}

// Run processes the input files in name order and returns the statistics
// of every file that produced them. ErrInterrupted and ErrSessionLost stop
// the run early and are returned together with the statistics so far.
func (r *Runner) Run(ctx context.Context) ([]*models.RunStatistics, error) {
	files, err := DiscoverInputs(r.opts.InputDir, r.opts.Extensions)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		r.logger.Warn("[runner] No input files found in '%s'", r.opts.InputDir)
		return nil, nil
	}
	r.logger.Info("[runner] Found %d file(s) to process", len(files))

	var all []*models.RunStatistics
	var runErr error

	for _, path := range files {
		if ctx.Err() != nil {
			runErr = ErrInterrupted
			break
		}
		if err := r.waitUnlocked(ctx, path); err != nil {
			runErr = err
			break
		}

		stats, err := r.opts.Processor.ProcessFile(ctx, path)
		if stats != nil {
			all = append(all, stats)
		}
		if errors.Is(err, ErrInterrupted) || errors.Is(err, ErrSessionLost) {
			runErr = err
			break
		}
		if err != nil {
			r.logger.Error("[runner] Skipping %s: %v", filepath.Base(path), err)
			continue
		}

		if stats != nil && stats.Complete() && r.opts.Mover != nil {
			dst, err := r.opts.Mover.MoveToProcessed(path)
			if err != nil {
				r.logger.Error("[runner] Could not move completed file: %v", err)
			} else {
				r.logger.Info("[runner] File '%s' 100%% DONE, moved to '%s'", filepath.Base(path), dst)
			}
		}
	}

	r.record(all)
	return all, runErr
}

// record writes the run to the ledger. Failures are logged only.
func (r *Runner) record(all []*models.RunStatistics) {
	if r.opts.Ledger == nil || len(all) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.opts.Ledger.Write(ctx, r.opts.RunID, all); err != nil {
		r.logger.Error("[runner] Could not record run %s in ledger: %v", r.opts.RunID, err)
		return
	}
	r.logger.Info("[runner] Run %s recorded (%d files)", r.opts.RunID, len(all))
}

// waitUnlocked blocks while an office lock file exists next to path.
func (r *Runner) waitUnlocked(ctx context.Context, path string) error {
	lock := filepath.Join(filepath.Dir(path), officeLockPrefix+filepath.Base(path))
	for {
		if _, err := os.Stat(lock); err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		if r.opts.Operator == nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), storage.ErrFileLocked)
		}
		r.opts.Operator.Banner(
			fmt.Sprintf("WARNING: File '%s' appears to be open.", filepath.Base(path)),
			"Please CLOSE the file before continuing.",
		)
		r.logger.Info("[runner] Waiting for the operator to close %s", path)
		if err := r.opts.Operator.WaitForEnter("Press ENTER once the file is closed to continue..."); err != nil {
			return err
		}
	}
}

// DiscoverInputs lists files in dir with one of exts, sorted by name and
// excluding office lock files. The directory is created when missing.
func DiscoverInputs(dir string, exts []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create input dir %q: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, officeLockPrefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		for _, want := range exts {
			if ext == want {
				files = append(files, filepath.Join(dir, name))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
