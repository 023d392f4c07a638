package services

import (
	"context"
	"sync"
	"time"

	"matchain-gc/models"
	"matchain-gc/storage"
	"matchain-gc/utils"
)

// memStore is an in-memory RecordStore that snapshots every save.
type memStore struct {
	mu       sync.Mutex
	sheets   map[string]*models.Sheet
	saves    []*models.Sheet
	locked   int // Load returns ErrFileLocked this many times first
	failSave int // Save fails this many times first
	onSave   func()
}

func newMemStore(path string, sheet *models.Sheet) *memStore {
	return &memStore{sheets: map[string]*models.Sheet{path: sheet}}
}

func (s *memStore) Load(path string) (*models.Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked > 0 {
		s.locked--
		return nil, storage.ErrFileLocked
	}
	sh, ok := s.sheets[path]
	if !ok {
		return nil, errNotFound
	}
	return cloneSheet(sh), nil
}

func (s *memStore) Save(path string, sheet *models.Sheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave > 0 {
		s.failSave--
		return errSaveFailed
	}
	s.sheets[path] = cloneSheet(sheet)
	s.saves = append(s.saves, cloneSheet(sheet))
	if s.onSave != nil {
		s.onSave()
	}
	return nil
}

func cloneSheet(s *models.Sheet) *models.Sheet {
	c := &models.Sheet{Name: s.Name, Tab: s.Tab, Header: append([]string(nil), s.Header...)}
	for _, r := range s.Rows {
		c.Rows = append(c.Rows, append([]string(nil), r...))
	}
	return c
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	errNotFound   = staticErr("not found")
	errSaveFailed = staticErr("disk full")
)

// scriptedSubmitter returns outcomes in order, then repeats the last one.
type scriptedSubmitter struct {
	outcomes []models.Outcome
	calls    []*models.Record
	before   func(n int)
}

func (s *scriptedSubmitter) Submit(ctx context.Context, rec *models.Record) models.Outcome {
	s.calls = append(s.calls, rec)
	if s.before != nil {
		s.before(len(s.calls))
	}
	if ctx.Err() != nil {
		return models.Outcome{Kind: models.OutcomeTransportFailure, Message: "Interrupted", Interrupted: true}
	}
	i := len(s.calls) - 1
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	return s.outcomes[i]
}

func success(token string) models.Outcome {
	return models.Outcome{Kind: models.OutcomeSuccess, NewToken: token, Responded: true}
}

type fakeRotator struct {
	tokens      []string
	invalidated bool
}

func (f *fakeRotator) Rotate(tok string) error {
	f.tokens = append(f.tokens, tok)
	return nil
}

func (f *fakeRotator) Invalidated() bool { return f.invalidated }

type fakeOperator struct {
	banners int
	waits   int
}

func (o *fakeOperator) Banner(lines ...string)      { o.banners++ }
func (o *fakeOperator) WaitForEnter(p string) error { o.waits++; return nil }

type fakeBackup struct {
	paths []string
	err   error
}

func (b *fakeBackup) Backup(path string) (string, error) {
	b.paths = append(b.paths, path)
	return path + ".bak", b.err
}

type countingMetrics struct {
	rows        map[string]int
	checkpoints map[bool]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{rows: map[string]int{}, checkpoints: map[bool]int{}}
}

func (m *countingMetrics) RecordRow(d string)       { m.rows[d]++ }
func (m *countingMetrics) RecordCheckpoint(ok bool) { m.checkpoints[ok]++ }

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func validRow(id string) []string {
	// perusahaan_id, kdkab, latitude, longitude, hasilgc, edit_nama, edit_alamat, nama_usaha, alamat_usaha, status_upload
	return []string{id, "01", "-4.5", "100.5", "1", "1", "1", "Toko " + id, "Jl. Merdeka " + id, ""}
}

func newTestProcessor(store *memStore, sub Submitter, rot TokenRotator) *Processor {
	return NewProcessor(ProcessorOptions{
		Store:     store,
		Submitter: sub,
		Tokens:    rot,
		Validator: NewValidator(models.GeofenceTable{"01": {MinLon: 100, MinLat: -5, MaxLon: 101, MaxLat: -4}}),
		Pacer:     utils.NewPacer(0, 0, noSleep),
		Logger:    utils.NewNopLogger(),
		SaveRetry: utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: noSleep},
	})
}
