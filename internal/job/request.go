package job

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"dvdmaker/internal/dvd"
	"dvdmaker/internal/preset"
	"dvdmaker/internal/services"
)

// SourceItem is one input file plus what the prober learned about it. Only
// Path is set by callers; zero metadata never blocks later stages.
type SourceItem struct {
	Path            string `validate:"required"`
	DurationSeconds float64
	Width           int
	Height          int
	FrameRate       float64
	HasAudio        bool
	AudioChannels   int
	AudioSampleRate int
}

// NewSources wraps plain paths as unprobed sources.
func NewSources(paths ...string) []SourceItem {
	out := make([]SourceItem, 0, len(paths))
	for _, p := range paths {
		out = append(out, SourceItem{Path: p})
	}
	return out
}

// Request is the immutable description of one conversion.
type Request struct {
	Sources  []SourceItem `validate:"required,min=1,dive"`
	DVD      dvd.Settings
	Output   dvd.Output
	WorkDir  string `validate:"required"`
	ToolsDir string `validate:"required"`
	Preset   preset.Definition
	// Parallel bounds concurrent transcodes; values below 1 mean 1.
	Parallel int `validate:"gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the request before any workspace or process is created.
func (r Request) Validate() error {
	if len(r.Sources) == 0 {
		return validationError("at least one source file is required", nil)
	}
	if err := requestValidator().Struct(r); err != nil {
		return validationError(formatValidationErrors(err), err)
	}
	if err := r.Output.Check(); err != nil {
		return validationError(err.Error(), err)
	}
	if strings.TrimSpace(r.Preset.ID) == "" {
		return validationError("no preset selected", nil)
	}
	for i, src := range r.Sources {
		path := strings.TrimSpace(src.Path)
		if path == "" {
			return validationError(fmt.Sprintf("source %d has an empty path", i+1), nil)
		}
		info, err := os.Stat(path)
		if err != nil {
			return validationError(fmt.Sprintf("source %q is not readable", path), err)
		}
		if info.IsDir() {
			return validationError(fmt.Sprintf("source %q is a directory", path), nil)
		}
	}
	return nil
}

// Workers returns the transcode concurrency limit.
func (r Request) Workers() int {
	if r.Parallel < 1 {
		return 1
	}
	return min(r.Parallel, len(r.Sources))
}

func validationError(message string, err error) error {
	return services.Wrap(services.KindValidation, string(StagePrepare), "validate request", message, err)
}

func formatValidationErrors(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		field := strings.TrimPrefix(fe.Namespace(), "Request.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
