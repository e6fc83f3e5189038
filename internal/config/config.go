package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	ToolsDir  string `toml:"tools_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Download describes where a non-core tool can be fetched from when it is
// missing from the tools directory.
type Download struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Binary string `toml:"binary"`
}

// Tools contains external tool resolution settings.
type Tools struct {
	AllowPathLookup bool       `toml:"allow_path_lookup"`
	ISOPreference   []string   `toml:"iso_preference"`
	DownloadTimeout int        `toml:"download_timeout"`
	Downloads       []Download `toml:"download"`
}

// DVD contains the default disc settings applied when a request does not
// override them.
type DVD struct {
	Mode           string `toml:"mode"`
	Aspect         string `toml:"aspect"`
	ChapterMinutes int    `toml:"chapter_minutes"`
	Preset         string `toml:"preset"`
	Label          string `toml:"label"`
	ExportFolder   bool   `toml:"export_folder"`
	ExportISO      bool   `toml:"export_iso"`
}

// Transcode contains encoder scheduling settings.
type Transcode struct {
	Parallel int `toml:"parallel"`
}

// Probe contains source inspection settings.
type Probe struct {
	Strict bool `toml:"strict"`
}

// Workflow contains job lifecycle settings.
type Workflow struct {
	KeepWorkDir bool `toml:"keep_work_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Preset is a user-defined encoding preset. Presets with the id of a built-in
// replace it.
type Preset struct {
	ID              string `toml:"id"`
	Name            string `toml:"name"`
	Mode            string `toml:"mode"`
	AudioCodec      string `toml:"audio_codec"`
	AudioBitrate    int    `toml:"audio_bitrate"`
	AudioSampleRate int    `toml:"audio_sample_rate"`
	AudioChannels   int    `toml:"audio_channels"`
	VideoBitrate    int    `toml:"video_bitrate"`
	MaxBitrate      int    `toml:"max_bitrate"`
	MinBitrate      int    `toml:"min_bitrate"`
	BufferSize      int    `toml:"buffer_size"`
	TwoPass         bool   `toml:"two_pass"`
}

// Config encapsulates all configuration values for dvdmaker.
//
// Configuration sections by subsystem:
//   - Paths: working, tools, output and log directories
//   - Tools: PATH fallback, ISO builder order, bootstrap downloads
//   - DVD: default disc settings for new jobs
//   - Transcode: encoder parallelism
//   - Probe: strict probing
//   - Workflow: work directory retention
//   - Logging: log format, level, and retention
//   - Presets: additional or overriding encoding presets
type Config struct {
	Paths     Paths     `toml:"paths"`
	Tools     Tools     `toml:"tools"`
	DVD       DVD       `toml:"dvd"`
	Transcode Transcode `toml:"transcode"`
	Probe     Probe     `toml:"probe"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
	Presets   []Preset  `toml:"presets"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("dvdmaker.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, tools and log directories. The
// output directory is created lazily by the export stages.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.ToolsDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the job history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.LogDir, "jobs.db")
}

// JobLogDir returns the directory holding per-job log files.
func (c *Config) JobLogDir() string {
	return filepath.Join(c.Paths.LogDir, "jobs")
}

// DownloadFor returns the bootstrap download entry for the named tool.
func (c *Config) DownloadFor(name string) (Download, bool) {
	for _, d := range c.Tools.Downloads {
		if strings.EqualFold(d.Name, name) && d.URL != "" {
			return d, true
		}
	}
	return Download{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
