package workflow

import (
	"strings"

	"dvdmaker/internal/config"
	"dvdmaker/internal/dvd"
	"dvdmaker/internal/job"
	"dvdmaker/internal/preset"
	"dvdmaker/internal/services"
)

// Overrides are per-job values that take precedence over the config
// defaults. Nil pointers and empty strings keep the configured value. The
// tools directory is not overridable per job because the manager's resolver
// is bound to it.
type Overrides struct {
	Mode           string
	Aspect         string
	ChapterMinutes *int
	Preset         string
	ExportFolder   *bool
	ExportISO      *bool
	OutputDir      string
	Label          string
	WorkDir        string
	Parallel       *int
}

// NewRequest builds a job request from config defaults, overrides and source
// paths. It resolves enums and the preset but leaves source checks to
// Request.Validate.
func NewRequest(cfg *config.Config, catalog *preset.Catalog, sources []string, o Overrides) (job.Request, error) {
	fail := func(message string, err error) (job.Request, error) {
		return job.Request{}, services.Wrap(services.KindValidation, string(job.StagePrepare), "build request", message, err)
	}
	mode, err := dvd.ParseMode(pick(o.Mode, cfg.DVD.Mode))
	if err != nil {
		return fail(err.Error(), err)
	}
	aspect, err := dvd.ParseAspect(pick(o.Aspect, cfg.DVD.Aspect))
	if err != nil {
		return fail(err.Error(), err)
	}
	if catalog == nil {
		catalog = preset.NewCatalog(cfg.Presets)
	}
	def, err := catalog.Lookup(pick(o.Preset, cfg.DVD.Preset))
	if err != nil {
		return fail(err.Error(), err)
	}
	chapterMinutes := cfg.DVD.ChapterMinutes
	if o.ChapterMinutes != nil {
		chapterMinutes = *o.ChapterMinutes
	}
	parallel := cfg.Transcode.Parallel
	if o.Parallel != nil {
		parallel = *o.Parallel
	}

	return job.Request{
		Sources: job.NewSources(sources...),
		DVD: dvd.Settings{
			Mode:     mode,
			Aspect:   aspect,
			Chapters: dvd.ChaptersEvery(chapterMinutes),
			PresetID: def.ID,
		},
		Output: dvd.Output{
			ExportFolder: pickBool(o.ExportFolder, cfg.DVD.ExportFolder),
			ExportISO:    pickBool(o.ExportISO, cfg.DVD.ExportISO),
			Dir:          pick(o.OutputDir, cfg.Paths.OutputDir),
			Label:        pick(o.Label, cfg.DVD.Label),
		},
		WorkDir:  pick(o.WorkDir, cfg.Paths.WorkDir),
		ToolsDir: cfg.Paths.ToolsDir,
		Preset:   def,
		Parallel: parallel,
	}, nil
}

func pick(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func pickBool(value *bool, fallback bool) bool {
	if value != nil {
		return *value
	}
	return fallback
}
