package model

import "time"

// FileStatus enumerates the lifecycle of a discovered log file.
type FileStatus string

const (
	StatusPending    FileStatus = "pending"
	StatusProcessing FileStatus = "processing"
	StatusCompleted  FileStatus = "completed"
	StatusFailed     FileStatus = "failed"
)

// FileResult reports the outcome of processing a single file.
type FileResult struct {
	File        string        `json:"file"`
	Status      FileStatus    `json:"status"`
	Records     int64         `json:"records"`
	ParseErrors int64         `json:"parse_errors"`
	Degraded    int64         `json:"degraded"`
	Skipped     bool          `json:"skipped"` // already completed for same hash
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// RunSummary is the machine-readable result of one orchestrator pass,
// returned by every CLI-facing operation.
type RunSummary struct {
	Status         string        `json:"status"` // ok, partial, failed, noop
	ProcessedFiles int           `json:"processed_files"`
	SkippedFiles   int           `json:"skipped_files"`
	FailedFiles    int           `json:"failed_files"`
	TotalRecords   int64         `json:"total_records"`
	ParseErrors    int64         `json:"parse_errors"`
	Degraded       int64         `json:"degraded"`
	Duration       time.Duration `json:"duration"`
	Files          []FileResult  `json:"files,omitempty"`
	Errors         []string      `json:"errors,omitempty"`
}

// Finalize derives the summary status from the per-file results.
func (s *RunSummary) Finalize() {
	switch {
	case s.ProcessedFiles == 0 && s.FailedFiles == 0:
		s.Status = "noop"
	case s.FailedFiles == 0:
		s.Status = "ok"
	case s.ProcessedFiles > 0:
		s.Status = "partial"
	default:
		s.Status = "failed"
	}
}

// Add folds a file result into the aggregate counters.
func (s *RunSummary) Add(fr FileResult) {
	s.Files = append(s.Files, fr)
	switch {
	case fr.Skipped:
		s.SkippedFiles++
	case fr.Status == StatusFailed:
		s.FailedFiles++
		if fr.Error != "" {
			s.Errors = append(s.Errors, fr.File+": "+fr.Error)
		}
	default:
		s.ProcessedFiles++
	}
	s.TotalRecords += fr.Records
	s.ParseErrors += fr.ParseErrors
	s.Degraded += fr.Degraded
}
