package config

const (
	defaultConfigPath      = "~/.config/dvdmaker/config.toml"
	defaultWorkDir         = "~/.local/share/dvdmaker/work"
	defaultToolsDir        = "~/.local/share/dvdmaker/tools"
	defaultOutputDir       = "~/dvd"
	defaultLogDir          = "~/.local/share/dvdmaker/logs"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
	defaultDownloadTimeout = 300
	defaultMode            = "pal"
	defaultAspect          = "auto"
	defaultChapterMinutes  = 5
	defaultPreset          = "fit"
	defaultParallel        = 1
	maxChapterMinutes      = 60
)

// DefaultISOPreference is the builder order used when none is configured.
var DefaultISOPreference = []string{"imgburn", "xorriso", "mkisofs", "genisoimage"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			ToolsDir:  defaultToolsDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			AllowPathLookup: true,
			ISOPreference:   append([]string(nil), DefaultISOPreference...),
			DownloadTimeout: defaultDownloadTimeout,
		},
		DVD: DVD{
			Mode:           defaultMode,
			Aspect:         defaultAspect,
			ChapterMinutes: defaultChapterMinutes,
			Preset:         defaultPreset,
			ExportFolder:   true,
			ExportISO:      false,
		},
		Transcode: Transcode{Parallel: defaultParallel},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
