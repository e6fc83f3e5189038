package ffprobe

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int       `json:"index"`
	CodecName    string    `json:"codec_name"`
	CodecType    string    `json:"codec_type"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	RFrameRate   string    `json:"r_frame_rate"`
	AvgFrameRate string    `json:"avg_frame_rate"`
	Duration     FlexFloat `json:"duration"`
	SampleRate   FlexFloat `json:"sample_rate"`
	Channels     int       `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string    `json:"filename"`
	NBStreams  int       `json:"nb_streams"`
	FormatName string    `json:"format_name"`
	Duration   FlexFloat `json:"duration"`
	Size       FlexFloat `json:"size"`
	BitRate    FlexFloat `json:"bit_rate"`
}

// FlexFloat decodes a JSON number or numeric string. Anything unparseable,
// negative or non-finite becomes zero.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		text = s
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		*f = 0
		return nil
	}
	*f = FlexFloat(value)
	return nil
}

// Parse decodes an ffprobe JSON payload.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// VideoStream returns the first video stream, if any.
func (r Result) VideoStream() (Stream, bool) {
	return r.firstOfType("video")
}

// AudioStream returns the first audio stream, if any.
func (r Result) AudioStream() (Stream, bool) {
	return r.firstOfType("audio")
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countOfType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countOfType("audio")
}

// DurationSeconds returns the container duration, falling back to the video
// stream duration when the container does not report one.
func (r Result) DurationSeconds() float64 {
	if d := float64(r.Format.Duration); d > 0 {
		return d
	}
	if video, ok := r.VideoStream(); ok {
		return float64(video.Duration)
	}
	return 0
}

// Metadata reduces the report to the fields used by the conversion stages.
func (r Result) Metadata() Metadata {
	meta := Metadata{DurationSeconds: r.DurationSeconds()}
	if video, ok := r.VideoStream(); ok {
		meta.Width = video.Width
		meta.Height = video.Height
		meta.FrameRate = ParseFrameRate(video.RFrameRate)
		if meta.FrameRate == 0 {
			meta.FrameRate = ParseFrameRate(video.AvgFrameRate)
		}
	}
	if audio, ok := r.AudioStream(); ok {
		meta.HasAudio = true
		meta.AudioChannels = audio.Channels
		meta.AudioSampleRate = int(audio.SampleRate)
	}
	return meta
}

func (r Result) firstOfType(kind string) (Stream, bool) {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			return stream, true
		}
	}
	return Stream{}, false
}

func (r Result) countOfType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// ParseFrameRate converts an ffprobe rate such as "30000/1001" or "25" to
// frames per second. A zero denominator or malformed input yields 0.
func ParseFrameRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	num, den, found := strings.Cut(value, "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || n < 0 {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}
