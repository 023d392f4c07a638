package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archiver keeps timestamped backups of input files and moves completed
// files out of the input directory.
type Archiver struct {
	BackupDir    string
	ProcessedDir string

	now func() time.Time
}

// NewArchiver creates an Archiver.
func NewArchiver(backupDir, processedDir string) *Archiver {
	return &Archiver{BackupDir: backupDir, ProcessedDir: processedDir, now: time.Now}
}

// Backup copies path to BackupDir/<stem>_<YYYYmmdd_HHMMSS><ext>.
func (a *Archiver) Backup(path string) (string, error) {
	if err := os.MkdirAll(a.BackupDir, 0755); err != nil {
		return "", fmt.Errorf("backup: create dir %q: %w", a.BackupDir, err)
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	dst := filepath.Join(a.BackupDir, fmt.Sprintf("%s_%s%s", stem, a.now().Format("20060102_150405"), ext))

	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("backup: copy %q: %w", path, err)
	}
	return dst, nil
}

// MoveToProcessed moves path into ProcessedDir, replacing a same-named file.
func (a *Archiver) MoveToProcessed(path string) (string, error) {
	if err := os.MkdirAll(a.ProcessedDir, 0755); err != nil {
		return "", fmt.Errorf("processed: create dir %q: %w", a.ProcessedDir, err)
	}
	dst := filepath.Join(a.ProcessedDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		// Rename fails across filesystems; fall back to copy + remove.
		if cerr := copyFile(path, dst); cerr != nil {
			return "", fmt.Errorf("processed: move %q: %w", path, err)
		}
		if rerr := os.Remove(path); rerr != nil {
			return "", fmt.Errorf("processed: remove %q: %w", path, rerr)
		}
	}
	return dst, nil
}
