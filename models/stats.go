package models

import "time"

// RunStatistics holds the per-file counters of one run.
type RunStatistics struct {
	Filename    string
	Total       int
	Success     int
	Failed      int
	Skipped     int
	StartTime   time.Time
	EndTime     time.Time
	Interrupted bool
}

// NewRunStatistics starts the clock for a file.
func NewRunStatistics(filename string, total int) *RunStatistics {
	return &RunStatistics{Filename: filename, Total: total, StartTime: time.Now()}
}

// Finish stamps the end time.
func (s *RunStatistics) Finish() { s.EndTime = time.Now() }

// Duration is end - start truncated to whole seconds.
func (s *RunStatistics) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Truncate(time.Second)
}

// Complete reports whether every row ended as success or skip.
func (s *RunStatistics) Complete() bool {
	return s.Total > 0 && s.Success+s.Skipped == s.Total
}
