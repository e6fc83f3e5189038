package authoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dvdmaker/internal/job"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
	"dvdmaker/internal/tools"
)

// Validator is the stage that checks the authored tree.
type Validator struct{}

// NewValidator builds the validation stage.
func NewValidator() *Validator { return &Validator{} }

func (*Validator) Prepare(context.Context, *job.Run) error { return nil }

func (*Validator) HealthCheck(context.Context) stage.Health { return stage.Healthy("validate") }

// Execute validates run.VideoTSPath.
func (*Validator) Execute(_ context.Context, run *job.Run) error {
	path := run.VideoTSPath
	if path == "" {
		path = run.Workspace.VideoTS()
	}
	if err := ValidateVideoTS(path); err != nil {
		return err
	}
	run.VideoTSPath = path
	run.Tracker.Update(job.StageValidate, 1, "VIDEO_TS validated")
	return nil
}

// ValidateVideoTS requires VIDEO_TS.IFO plus at least one non-empty IFO, BUP
// and VOB file. A tool exit code of zero is not evidence of a usable tree.
func ValidateVideoTS(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return integrityError(dir, "VIDEO_TS directory missing", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return integrityError(dir, "cannot read VIDEO_TS", err)
	}
	var hasVMG bool
	found := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToUpper(entry.Name())
		fi, err := entry.Info()
		if err != nil || fi.Size() == 0 {
			continue
		}
		if name == "VIDEO_TS.IFO" {
			hasVMG = true
		}
		found[filepath.Ext(name)] = true
	}
	if !hasVMG {
		return integrityError(dir, "VIDEO_TS.IFO missing", nil)
	}
	for _, ext := range []string{".IFO", ".BUP", ".VOB"} {
		if !found[ext] {
			return integrityError(dir, fmt.Sprintf("no non-empty %s file", ext), nil)
		}
	}
	return nil
}

func integrityError(dir, message string, err error) error {
	return &services.Error{
		Kind:      services.KindOutputIntegrity,
		Stage:     string(job.StageValidate),
		Tool:      tools.DVDAuthor,
		Operation: "validate VIDEO_TS",
		Message:   fmt.Sprintf("%s (%s)", message, dir),
		Err:       err,
	}
}
