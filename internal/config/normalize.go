package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeDVD()
	c.normalizePresets()
	c.normalizeLogging()
	if c.Transcode.Parallel <= 0 {
		c.Transcode.Parallel = defaultParallel
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DVDMAKER_TOOLS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ToolsDir = strings.TrimSpace(value)
	}
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.tools_dir", &c.Paths.ToolsDir, defaultToolsDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeTools() {
	if len(c.Tools.ISOPreference) == 0 {
		c.Tools.ISOPreference = append([]string(nil), DefaultISOPreference...)
	} else {
		seen := make(map[string]struct{}, len(c.Tools.ISOPreference))
		order := make([]string, 0, len(c.Tools.ISOPreference))
		for _, name := range c.Tools.ISOPreference {
			normalized := strings.ToLower(strings.TrimSpace(name))
			if normalized == "" {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			order = append(order, normalized)
		}
		c.Tools.ISOPreference = order
	}
	if c.Tools.DownloadTimeout <= 0 {
		c.Tools.DownloadTimeout = defaultDownloadTimeout
	}
	for i := range c.Tools.Downloads {
		d := &c.Tools.Downloads[i]
		d.Name = strings.ToLower(strings.TrimSpace(d.Name))
		d.URL = strings.TrimSpace(d.URL)
		d.Binary = strings.TrimSpace(d.Binary)
		if d.Binary == "" {
			d.Binary = d.Name
		}
	}
}

func (c *Config) normalizeDVD() {
	c.DVD.Mode = strings.ToLower(strings.TrimSpace(c.DVD.Mode))
	if c.DVD.Mode == "" {
		c.DVD.Mode = defaultMode
	}
	c.DVD.Aspect = strings.ToLower(strings.TrimSpace(c.DVD.Aspect))
	if c.DVD.Aspect == "" {
		c.DVD.Aspect = defaultAspect
	}
	c.DVD.Preset = strings.ToLower(strings.TrimSpace(c.DVD.Preset))
	if c.DVD.Preset == "" {
		c.DVD.Preset = defaultPreset
	}
	if c.DVD.ChapterMinutes < 0 {
		c.DVD.ChapterMinutes = 0
	}
	if c.DVD.ChapterMinutes > maxChapterMinutes {
		c.DVD.ChapterMinutes = maxChapterMinutes
	}
	c.DVD.Label = strings.TrimSpace(c.DVD.Label)
}

func (c *Config) normalizePresets() {
	for i := range c.Presets {
		p := &c.Presets[i]
		p.ID = strings.ToLower(strings.TrimSpace(p.ID))
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			p.Name = p.ID
		}
		p.Mode = strings.ToLower(strings.TrimSpace(p.Mode))
		p.AudioCodec = strings.ToLower(strings.TrimSpace(p.AudioCodec))
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
