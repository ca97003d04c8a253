package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes files matching the provided targets that are older
// than retentionDays and returns how many were removed. A retentionDays value
// of 0 disables pruning.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if trimmed := strings.TrimSpace(path); trimmed != "" {
				if abs, err := filepath.Abs(trimmed); err == nil {
					exclusions[abs] = struct{}{}
				}
			}
		}
	}

	removed := 0
	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(dir, target.Pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			fullPath, err := filepath.Abs(match)
			if err != nil {
				fullPath = match
			}
			if _, skip := exclusions[fullPath]; skip {
				continue
			}
			info, err := os.Stat(fullPath)
			if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(fullPath); err != nil {
				WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
					String("path", fullPath),
					Error(err),
					String(FieldErrorHint, "check file permissions and log_dir ownership"),
					String(FieldImpact, "old log file remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("log pruned",
					String("path", fullPath),
					String(FieldEventType, "log_pruned"),
				)
			}
		}
	}
	return removed
}

// LinkCurrent points <dir>/<name> at target so the newest run log has a
// stable path. It falls back to a hard link where symlinks are unavailable.
// A missing target is created empty so either link kind can attach to it.
func LinkCurrent(dir, name, target string) error {
	if dir == "" || target == "" {
		return nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	current := filepath.Join(dir, name)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	return os.Link(target, current)
}
