package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"matchain-gc/models"
	"matchain-gc/utils"
)

// ReportService is the ReportGenerator: pure summation over RunStatistics
// plus console and file rendering.
type ReportService struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewReportService creates a ReportService that stamps reports with the current time.
func NewReportService(logger *utils.Logger) *ReportService {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ReportService{logger: logger, now: time.Now}
}

// Generate totals the statistics of every file.
func (s *ReportService) Generate(stats []*models.RunStatistics) *models.RunReport {
	r := &models.RunReport{GeneratedAt: s.now(), Files: stats}
	for _, st := range stats {
		r.TotalFiles++
		r.TotalRecords += st.Total
		r.TotalSuccess += st.Success
		r.TotalFailed += st.Failed
		r.TotalSkipped += st.Skipped
	}
	return r
}

// Render formats the report as plain text.
func (s *ReportService) Render(r *models.RunReport) string {
	sep := strings.Repeat("=", 60)
	thin := strings.Repeat("-", 40)

	var b strings.Builder
	fmt.Fprintln(&b, sep)
	fmt.Fprintf(&b, "RINGKASAN EKSEKUSI MATCHAIN GC - %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b)

	for _, st := range r.Files {
		fmt.Fprintf(&b, "FILE: %s\n", st.Filename)
		fmt.Fprintf(&b, "  - Total Data    : %d\n", st.Total)
		fmt.Fprintf(&b, "  - Berhasil      : %d\n", st.Success)
		fmt.Fprintf(&b, "  - Gagal         : %d\n", st.Failed)
		fmt.Fprintf(&b, "  - Dilewati      : %d\n", st.Skipped)
		fmt.Fprintf(&b, "  - Durasi        : %s\n", FormatDuration(st.Duration()))
		if st.Interrupted {
			fmt.Fprintln(&b, "  - Dihentikan    : ya")
		}
		fmt.Fprintln(&b, thin)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, sep)
	fmt.Fprintln(&b, "TOTAL KESELURUHAN")
	fmt.Fprintf(&b, "  - Jumlah File   : %d\n", r.TotalFiles)
	fmt.Fprintf(&b, "  - Total Berhasil: %d\n", r.TotalSuccess)
	fmt.Fprintf(&b, "  - Total Gagal   : %d\n", r.TotalFailed)
	fmt.Fprintf(&b, "  - Total Dilewati: %d\n", r.TotalSkipped)
	fmt.Fprint(&b, sep)
	return b.String()
}

// Print writes the rendered report to w.
func (s *ReportService) Print(w io.Writer, r *models.RunReport) {
	fmt.Fprintf(w, "\n%s\n\n", s.Render(r))
}

// Save writes summary_report_<YYYYmmdd_HHMMSS>.txt into dir and returns its path.
func (s *ReportService) Save(dir string, r *models.RunReport) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("summary_report_%s.txt", r.GeneratedAt.Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(s.Render(r)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	s.logger.Info("[report] Summary report saved to: %s", path)
	return path, nil
}

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}
