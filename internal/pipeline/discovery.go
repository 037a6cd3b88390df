// Package pipeline orchestrates the ETL flow: file discovery, the worker
// pool, batching to the sink, and the background auto-discovery monitor.
package pipeline

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/nanhuayuan/nginx-log-analyzer-sub000/internal/config"
)

// dateDirRe matches the accepted date directory names: YYYYMMDD and
// YYYY-MM-DD.
var dateDirRe = regexp.MustCompile(`^\d{8}$|^\d{4}-\d{2}-\d{2}$`)

// discover scans the root directory for log files inside date-named
// subdirectories. Files modified within the stability window are left for a
// later pass since they may still be written.
func discover(cfg config.InputConfig, onlyDate string) ([]string, error) {
	entries, err := os.ReadDir(cfg.RootDir)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() || !dateDirRe.MatchString(entry.Name()) {
			continue
		}
		if onlyDate != "" && !sameDate(entry.Name(), onlyDate) {
			continue
		}

		dir := filepath.Join(cfg.RootDir, entry.Name())
		matches, err := filepath.Glob(filepath.Join(dir, cfg.Pattern))
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			if excluded(cfg.Exclude, path) {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			if now.Sub(info.ModTime()) < cfg.StableFor {
				continue // possibly still being written
			}
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files, nil
}

// sameDate compares a directory name to a requested date, accepting either
// naming form on both sides.
func sameDate(dirName, date string) bool {
	return normalizeDate(dirName) == normalizeDate(date)
}

func normalizeDate(d string) string {
	if len(d) == 10 && d[4] == '-' && d[7] == '-' {
		return d[:4] + d[5:7] + d[8:]
	}
	return d
}

func excluded(patterns []string, path string) bool {
	base := filepath.Base(path)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}

// partition splits files into n near-equal contiguous groups, one per
// worker. Returns only non-empty groups.
func partition(files []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	if n > len(files) {
		n = len(files)
	}
	var groups [][]string
	if n == 0 {
		return groups
	}
	per := (len(files) + n - 1) / n
	for start := 0; start < len(files); start += per {
		end := start + per
		if end > len(files) {
			end = len(files)
		}
		groups = append(groups, files[start:end])
	}
	return groups
}
