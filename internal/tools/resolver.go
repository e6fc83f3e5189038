package tools

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"dvdmaker/internal/services"
)

// Resolver maps logical tool names to executable paths.
type Resolver struct {
	dir       string
	allowPath bool
	goos      string
	lookPath  func(string) (string, error)
}

// NewResolver builds a resolver rooted at the tools directory.
func NewResolver(dir string, allowPathLookup bool) *Resolver {
	return &Resolver{dir: dir, allowPath: allowPathLookup, goos: runtime.GOOS, lookPath: exec.LookPath}
}

// Dir returns the tools directory.
func (r *Resolver) Dir() string { return r.dir }

// Candidates lists the tools-directory paths checked for name, in order.
func (r *Resolver) Candidates(name string) []string {
	exe := executableNameFor(name, r.goos)
	if strings.TrimSpace(r.dir) == "" {
		return nil
	}
	logical := strings.ToLower(strings.TrimSpace(name))
	return []string{
		filepath.Join(r.dir, exe),
		filepath.Join(r.dir, "bin", exe),
		filepath.Join(r.dir, logical, exe),
	}
}

// Find returns the first existing executable for name.
func (r *Resolver) Find(name string) (string, bool) {
	for _, candidate := range r.Candidates(name) {
		if info, err := os.Stat(candidate); err == nil && isExecutable(info, r.goos) {
			return candidate, true
		}
	}
	if r.allowPath {
		if path, err := r.lookPath(executableNameFor(name, r.goos)); err == nil {
			return path, true
		}
	}
	return "", false
}

// Resolve is Find with a typed ToolMissing error.
func (r *Resolver) Resolve(name string) (string, error) {
	if path, ok := r.Find(name); ok {
		return path, nil
	}
	where := fmt.Sprintf("not found in %s", r.dir)
	if r.allowPath {
		where += " or on PATH"
	}
	return "", services.ToolMissing("", name, fmt.Sprintf("%s %s", executableNameFor(name, r.goos), where))
}

func isExecutable(info os.FileInfo, goos string) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if goos == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
