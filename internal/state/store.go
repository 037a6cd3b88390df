// Package state persists the per-file processing ledger that makes runs
// resumable. A file counts as processed only when a completed entry exists
// for the same name and content hash.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/model"
)

// FileEntry is the persisted record for one discovered file.
type FileEntry struct {
	File         string           `json:"file"`
	FullPath     string           `json:"full_path"`
	Hash         string           `json:"hash"`
	FileSize     int64            `json:"file_size"`
	Mtime        time.Time        `json:"mtime"`
	Status       model.FileStatus `json:"status"`
	ProcessID    string           `json:"process_id,omitempty"`
	StartTime    time.Time        `json:"start_time,omitempty"`
	EndTime      time.Time        `json:"end_time,omitempty"`
	RecordsCount int64            `json:"records_count"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// dateEntry groups file entries under their date directory key.
type dateEntry struct {
	Status         string       `json:"status"`
	FilesProcessed []*FileEntry `json:"files_processed"`
}

// Summary aggregates the ledger on demand; it is derived, never maintained
// separately, so it cannot drift.
type Summary struct {
	TotalFiles   int   `json:"total_files"`
	Completed    int   `json:"completed"`
	Failed       int   `json:"failed"`
	Processing   int   `json:"processing"`
	Pending      int   `json:"pending"`
	TotalRecords int64 `json:"total_records"`
}

// Store is the incremental state store. A single mutex serializes all
// transitions and writes; concurrent readers of the persisted file may see
// a momentarily stale view, which is acceptable.
type Store struct {
	path            string
	checkpointEvery int
	logger          zerolog.Logger

	mu    sync.Mutex
	dates map[string]*dateEntry

	// memOnly is set when the ledger file cannot be read or written; the
	// run continues without persistence instead of aborting.
	memOnly bool

	transitions int
}

// Open loads the ledger from disk, degrading to in-memory-only operation if
// the file is unreadable.
func Open(path string, checkpointEvery int, logger zerolog.Logger) *Store {
	s := &Store{
		path:            path,
		checkpointEvery: checkpointEvery,
		logger:          logger.With().Str("component", "state").Logger(),
		dates:           make(map[string]*dateEntry),
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fresh ledger.
	case err != nil:
		s.logger.Warn().Err(err).Str("path", path).Msg("state file unreadable, running in-memory only")
		s.memOnly = true
	default:
		if err := json.Unmarshal(data, &s.dates); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("state file corrupt, running in-memory only")
			s.memOnly = true
			s.dates = make(map[string]*dateEntry)
		}
	}
	return s
}

// HashFile computes the content hash used for file identity.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// dateKey derives the ledger key from the file's parent directory name.
func dateKey(path string) string {
	return filepath.Base(filepath.Dir(path))
}

func (s *Store) lookup(path, hash string) *FileEntry {
	de := s.dates[dateKey(path)]
	if de == nil {
		return nil
	}
	name := filepath.Base(path)
	for _, fe := range de.FilesProcessed {
		if fe.File == name && fe.Hash == hash {
			return fe
		}
	}
	return nil
}

// IsProcessed reports whether a completed entry exists for the file's
// current name and content hash.
func (s *Store) IsProcessed(path string) (bool, error) {
	hash, err := HashFile(path)
	if err != nil {
		return false, fmt.Errorf("hashing %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fe := s.lookup(path, hash)
	return fe != nil && fe.Status == model.StatusCompleted, nil
}

// MarkProcessing transitions the file to processing, creating its entry on
// first discovery, and returns the process ID for the later transition.
func (s *Store) MarkProcessing(path string) (string, error) {
	hash, err := HashFile(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dateKey(path)
	de := s.dates[key]
	if de == nil {
		de = &dateEntry{Status: "processing"}
		s.dates[key] = de
	}

	fe := s.lookup(path, hash)
	if fe == nil {
		fe = &FileEntry{
			File:     filepath.Base(path),
			FullPath: path,
			Hash:     hash,
		}
		de.FilesProcessed = append(de.FilesProcessed, fe)
	}

	fe.FileSize = info.Size()
	fe.Mtime = info.ModTime()
	fe.Status = model.StatusProcessing
	fe.ProcessID = uuid.NewString()
	fe.StartTime = time.Now()
	fe.EndTime = time.Time{}
	fe.ErrorMessage = ""
	de.Status = "processing"

	s.persistTransition()
	return fe.ProcessID, nil
}

// MarkCompleted finalizes a processing entry with its record count. A stale
// process ID is logged and ignored rather than clobbering a newer run.
func (s *Store) MarkCompleted(path string, records int64, processID string) {
	s.finish(path, processID, model.StatusCompleted, records, "")
}

// MarkFailed finalizes a processing entry with the error text retained.
func (s *Store) MarkFailed(path, errMsg, processID string) {
	s.finish(path, processID, model.StatusFailed, 0, errMsg)
}

func (s *Store) finish(path, processID string, status model.FileStatus, records int64, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	de := s.dates[dateKey(path)]
	if de == nil {
		s.logger.Warn().Str("path", path).Msg("transition for unknown date entry")
		return
	}
	name := filepath.Base(path)
	for _, fe := range de.FilesProcessed {
		if fe.File != name || fe.ProcessID != processID {
			continue
		}
		fe.Status = status
		fe.RecordsCount = records
		fe.EndTime = time.Now()
		fe.ErrorMessage = errMsg
		s.refreshDateStatus(de)
		s.persistTransition()
		return
	}
	s.logger.Warn().Str("path", path).Str("process_id", processID).Msg("transition for unknown process id")
}

func (s *Store) refreshDateStatus(de *dateEntry) {
	status := "completed"
	for _, fe := range de.FilesProcessed {
		switch fe.Status {
		case model.StatusProcessing, model.StatusPending:
			status = "processing"
		case model.StatusFailed:
			if status == "completed" {
				status = "failed"
			}
		}
	}
	de.Status = status
}

// ResetFailed returns failed entries to pending so they are picked up
// again. An empty date resets every date. This is the only way a failed
// entry leaves the failed state.
func (s *Store) ResetFailed(date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset := 0
	for key, de := range s.dates {
		if date != "" && key != date {
			continue
		}
		for _, fe := range de.FilesProcessed {
			if fe.Status == model.StatusFailed {
				fe.Status = model.StatusPending
				fe.ProcessID = ""
				fe.ErrorMessage = ""
				reset++
			}
		}
		s.refreshDateStatus(de)
	}
	if reset > 0 {
		s.persistTransition()
	}
	return reset
}

// Summarize derives the aggregate view of the ledger.
func (s *Store) Summarize() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summarizeLocked()
}

func (s *Store) summarizeLocked() Summary {
	var sum Summary
	for _, de := range s.dates {
		for _, fe := range de.FilesProcessed {
			sum.TotalFiles++
			switch fe.Status {
			case model.StatusCompleted:
				sum.Completed++
				sum.TotalRecords += fe.RecordsCount
			case model.StatusFailed:
				sum.Failed++
			case model.StatusProcessing:
				sum.Processing++
			default:
				sum.Pending++
			}
		}
	}
	return sum
}

// persistTransition writes the ledger after a state transition. Write
// failures flip the store to memory-only for the rest of the run.
func (s *Store) persistTransition() {
	s.transitions++
	if s.checkpointEvery > 0 && s.transitions%s.checkpointEvery == 0 {
		sum := s.summarizeLocked()
		s.logger.Info().
			Int("total", sum.TotalFiles).
			Int("completed", sum.Completed).
			Int("failed", sum.Failed).
			Int64("records", sum.TotalRecords).
			Msg("ledger checkpoint")
	}
	if s.memOnly {
		return
	}
	if err := s.flushLocked(); err != nil {
		s.logger.Warn().Err(err).Msg("state write failed, continuing in-memory only")
		s.memOnly = true
	}
}

// Flush atomically writes the ledger to disk: temp file in the same
// directory, then rename, so a crash mid-write never truncates the ledger.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.dates, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// InMemoryOnly reports whether persistence has been disabled for this run.
func (s *Store) InMemoryOnly() bool {
	return s.memOnly
}
