package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and name pattern to prune. When Dirs
// is true, matching directories are removed recursively instead of files.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Dirs    bool
	Exclude []string
}

// CleanupOld removes entries matching the provided targets that are older
// than retentionDays. A retentionDays value of 0 disables pruning. It returns
// the number of removed entries.
func CleanupOld(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{})
	for _, target := range targets {
		for _, path := range target.Exclude {
			if abs, err := filepath.Abs(strings.TrimSpace(path)); err == nil {
				exclusions[abs] = struct{}{}
			}
		}
	}

	removed := 0
	for _, target := range targets {
		dir := strings.TrimSpace(target.Dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() != target.Dirs {
				continue
			}
			if pat := strings.TrimSpace(target.Pattern); pat != "" {
				if matched, err := filepath.Match(pat, entry.Name()); err != nil || !matched {
					continue
				}
			}
			fullPath, err := filepath.Abs(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			if _, skip := exclusions[fullPath]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.RemoveAll(fullPath); err != nil {
				WarnWithContext(logger, "retention cleanup failed; entry remains", "retention_failed",
					String("path", fullPath),
					Error(err),
					String(FieldErrorHint, "check permissions on the log and work directories"),
					String(FieldImpact, "old entry remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("retention pruned entry",
					String("path", fullPath),
					String(FieldEventType, "retention_pruned"),
				)
			}
		}
	}
	return removed
}
