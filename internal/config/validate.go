package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	knownISOTools = []string{"imgburn", "xorriso", "mkisofs", "genisoimage"}
	knownModes    = []string{"pal", "ntsc"}
	knownAspects  = []string{"auto", "16:9", "4:3"}
	knownPresets  = []string{"fit", "best", "fast"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateDVD(); err != nil {
		return err
	}
	if err := c.validatePresets(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Transcode.Parallel < 1 {
		return errors.New("transcode.parallel must be at least 1")
	}
	return nil
}

func (c *Config) validateTools() error {
	if len(c.Tools.ISOPreference) == 0 {
		return errors.New("tools.iso_preference must list at least one builder")
	}
	for _, name := range c.Tools.ISOPreference {
		if !slices.Contains(knownISOTools, name) {
			return fmt.Errorf("tools.iso_preference: unknown builder %q (valid: %v)", name, knownISOTools)
		}
	}
	for i, d := range c.Tools.Downloads {
		if d.Name == "" {
			return fmt.Errorf("tools.download[%d].name must be set", i)
		}
		if d.Name == "ffmpeg" || d.Name == "ffprobe" {
			return fmt.Errorf("tools.download[%d]: %s is a core tool and is never downloaded", i, d.Name)
		}
	}
	return nil
}

func (c *Config) validateDVD() error {
	if !slices.Contains(knownModes, c.DVD.Mode) {
		return fmt.Errorf("dvd.mode must be one of %v, got %q", knownModes, c.DVD.Mode)
	}
	if !slices.Contains(knownAspects, c.DVD.Aspect) {
		return fmt.Errorf("dvd.aspect must be one of %v, got %q", knownAspects, c.DVD.Aspect)
	}
	if !slices.Contains(c.PresetIDs(), c.DVD.Preset) {
		return fmt.Errorf("dvd.preset %q is not a known preset", c.DVD.Preset)
	}
	return nil
}

func (c *Config) validatePresets() error {
	seen := make(map[string]struct{}, len(c.Presets))
	for i, p := range c.Presets {
		if p.ID == "" {
			return fmt.Errorf("presets[%d].id must be set", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("presets[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = struct{}{}
		switch p.Mode {
		case "fit", "best", "fast":
		default:
			return fmt.Errorf("presets[%d].mode must be fit, best or fast, got %q", i, p.Mode)
		}
		for key, value := range map[string]int{
			"audio_bitrate":     p.AudioBitrate,
			"audio_sample_rate": p.AudioSampleRate,
			"audio_channels":    p.AudioChannels,
			"video_bitrate":     p.VideoBitrate,
			"max_bitrate":       p.MaxBitrate,
			"min_bitrate":       p.MinBitrate,
			"buffer_size":       p.BufferSize,
		} {
			if value < 0 {
				return fmt.Errorf("presets[%d].%s must not be negative", i, key)
			}
		}
		if p.MaxBitrate > 0 && p.MinBitrate > p.MaxBitrate {
			return fmt.Errorf("presets[%d]: min_bitrate exceeds max_bitrate", i)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// PresetIDs lists the built-in preset ids followed by any user-defined ids.
func (c *Config) PresetIDs() []string {
	ids := append([]string(nil), knownPresets...)
	for _, p := range c.Presets {
		if !slices.Contains(ids, p.ID) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
