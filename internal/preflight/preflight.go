package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"dvdmaker/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Warning marks a passed check that deserves attention.
	Warning bool
	Detail  string
}

// WorkspaceBytesHint is the free space a job workspace typically needs: the
// transcoded streams plus the authored VIDEO_TS and an optional ISO.
const WorkspaceBytesHint uint64 = 3 * 4_402_341_478

// RunAll executes every path check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Tools directory", cfg.Paths.ToolsDir),
		CheckCreatable("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, WorkspaceBytesHint),
	}
}

// ForJob checks the directories a single job writes to. Free space shortfalls
// are reported as warnings rather than failures.
func ForJob(workDir, outputDir string) []Result {
	return []Result{
		CheckDirectoryAccess("Work directory", workDir),
		CheckCreatable("Output directory", outputDir),
		CheckFreeSpace("Work directory space", workDir, WorkspaceBytesHint),
	}
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatable passes when path is an accessible directory or when its
// nearest existing ancestor is, so the directory can be created on demand.
func CheckCreatable(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
		}
		return CheckDirectoryAccess(name, path)
	}
	ancestor, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if err := checkAccess(ancestor); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckFreeSpace warns when the filesystem holding path has less than want
// bytes available. Platforms without a free-space query pass silently.
func CheckFreeSpace(name, path string, want uint64) Result {
	target, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s (free space unknown: %v)", path, err)}
	}
	free, ok, err := freeBytes(target)
	if err != nil {
		return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s (free space unknown: %v)", path, err)}
	}
	if !ok {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (free space not checked)", path)}
	}
	detail := fmt.Sprintf("%s (%s free)", path, humanize.IBytes(free))
	if free < want {
		return Result{Name: name, Passed: true, Warning: true, Detail: fmt.Sprintf("%s, recommended %s", detail, humanize.IBytes(want))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", current)
			}
			return current, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		current = parent
	}
}
