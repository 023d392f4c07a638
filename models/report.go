package models

import "time"

// RunReport aggregates the statistics of every file processed in one run.
type RunReport struct {
	GeneratedAt time.Time
	Files       []*RunStatistics

	TotalFiles   int
	TotalRecords int
	TotalSuccess int
	TotalFailed  int
	TotalSkipped int
}
