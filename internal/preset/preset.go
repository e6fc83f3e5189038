// Package preset defines the encoding presets a job can select and resolves
// the video bitrate each one implies.
package preset

import (
	"fmt"
	"slices"
	"strings"

	"dvdmaker/internal/bitrate"
	"dvdmaker/internal/config"
)

// EncodeMode decides how the video bitrate is chosen.
type EncodeMode string

const (
	// ModeFit sizes the bitrate so every source fills one disc.
	ModeFit EncodeMode = "fit"
	// ModeBest uses a high fixed bitrate with two-pass encoding.
	ModeBest EncodeMode = "best"
	// ModeFast uses a fixed bitrate and always encodes in a single pass.
	ModeFast EncodeMode = "fast"
)

// Audio parameters for every title.
type Audio struct {
	Codec       string
	BitrateKbps int
	SampleRate  int
	Channels    int
}

// Video parameters. TargetKbps of zero means "compute with the fit formula".
type Video struct {
	TargetKbps int
	MaxKbps    int
	MinKbps    int
	BufferKB   int
	TwoPass    bool
}

// Definition is one selectable preset.
type Definition struct {
	ID    string
	Name  string
	Mode  EncodeMode
	Audio Audio
	Video Video
}

const (
	defaultAudioCodec   = "ac3"
	defaultAudioKbps    = 192
	defaultSampleRate   = 48000
	defaultChannels     = 2
	defaultMaxKbps      = 8000
	defaultMinKbps      = 2000
	defaultBufferKB     = 1835
	dvdVideoCeilingKbps = 9800
)

// Builtins returns the presets shipped with dvdmaker.
func Builtins() []Definition {
	audio := Audio{Codec: defaultAudioCodec, BitrateKbps: defaultAudioKbps, SampleRate: defaultSampleRate, Channels: defaultChannels}
	return []Definition{
		{
			ID:    "fit",
			Name:  "Fit to disc",
			Mode:  ModeFit,
			Audio: audio,
			Video: Video{MaxKbps: defaultMaxKbps, MinKbps: defaultMinKbps, BufferKB: defaultBufferKB, TwoPass: true},
		},
		{
			ID:    "best",
			Name:  "Best quality",
			Mode:  ModeBest,
			Audio: Audio{Codec: defaultAudioCodec, BitrateKbps: 256, SampleRate: defaultSampleRate, Channels: defaultChannels},
			Video: Video{TargetKbps: 8000, MaxKbps: 9000, MinKbps: defaultMinKbps, BufferKB: defaultBufferKB, TwoPass: true},
		},
		{
			ID:    "fast",
			Name:  "Fast single pass",
			Mode:  ModeFast,
			Audio: audio,
			Video: Video{TargetKbps: 5000, MaxKbps: defaultMaxKbps, MinKbps: defaultMinKbps, BufferKB: defaultBufferKB},
		},
	}
}

// TwoPassEnabled reports whether encoding runs an analysis pass first. Fast
// presets never do.
func (d Definition) TwoPassEnabled() bool {
	return d.Mode != ModeFast && d.Video.TwoPass
}

// NeedsFit reports whether the video bitrate comes from the fit formula.
func (d Definition) NeedsFit() bool {
	return d.Mode == ModeFit || d.Video.TargetKbps <= 0
}

// VideoBitrate returns the single video bitrate used for every source of a
// job whose sources run for totalSeconds in total. Fixed targets are held
// between the preset floor and ceiling.
func (d Definition) VideoBitrate(totalSeconds float64) int {
	if d.NeedsFit() {
		return bitrate.Fit(totalSeconds, d.Audio.BitrateKbps, d.Video.MinKbps, d.Video.MaxKbps)
	}
	kbps := d.Video.TargetKbps
	if d.Video.MaxKbps > 0 {
		kbps = min(kbps, d.Video.MaxKbps)
	}
	if d.Video.MinKbps > 0 {
		kbps = max(kbps, d.Video.MinKbps)
	}
	return kbps
}

// Catalog resolves preset ids, with user presets overriding built-ins.
type Catalog struct {
	order []string
	byID  map[string]Definition
}

// NewCatalog merges user presets from configuration over the built-ins.
func NewCatalog(user []config.Preset) *Catalog {
	c := &Catalog{byID: make(map[string]Definition)}
	for _, def := range Builtins() {
		c.add(def)
	}
	for _, p := range user {
		c.add(fromConfig(p))
	}
	return c
}

func (c *Catalog) add(def Definition) {
	if _, exists := c.byID[def.ID]; !exists {
		c.order = append(c.order, def.ID)
	}
	c.byID[def.ID] = def
}

// Lookup returns the preset for id.
func (c *Catalog) Lookup(id string) (Definition, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	def, ok := c.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("unknown preset %q (available: %s)", id, strings.Join(c.IDs(), ", "))
	}
	return def, nil
}

// IDs lists preset ids in definition order.
func (c *Catalog) IDs() []string {
	return slices.Clone(c.order)
}

// All returns every preset in definition order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func fromConfig(p config.Preset) Definition {
	def := Definition{
		ID:   p.ID,
		Name: p.Name,
		Mode: EncodeMode(p.Mode),
		Audio: Audio{
			Codec:       orString(p.AudioCodec, defaultAudioCodec),
			BitrateKbps: orInt(p.AudioBitrate, defaultAudioKbps),
			SampleRate:  orInt(p.AudioSampleRate, defaultSampleRate),
			Channels:    orInt(p.AudioChannels, defaultChannels),
		},
		Video: Video{
			TargetKbps: p.VideoBitrate,
			MaxKbps:    min(orInt(p.MaxBitrate, defaultMaxKbps), dvdVideoCeilingKbps),
			MinKbps:    orInt(p.MinBitrate, defaultMinKbps),
			BufferKB:   orInt(p.BufferSize, defaultBufferKB),
			TwoPass:    p.TwoPass,
		},
	}
	if def.Name == "" {
		def.Name = def.ID
	}
	return def
}

func orInt(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func orString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
