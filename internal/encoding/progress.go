package encoding

import (
	"strconv"
	"strings"
	"sync"

	"dvdmaker/internal/process"
)

// progressParser reads ffmpeg "-progress pipe:1" key=value blocks from
// stdout and reports the fraction of the source encoded so far.
type progressParser struct {
	duration float64
	report   func(fraction float64, speed string)

	mu    sync.Mutex
	speed string
}

func newProgressParser(durationSeconds float64, report func(float64, string)) *progressParser {
	return &progressParser{duration: durationSeconds, report: report}
}

// Line implements process.LineSink.
func (p *progressParser) Line(stream, line string) {
	if stream != process.StreamStdout {
		return
	}
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch key {
	case "speed":
		p.speed = strings.TrimSpace(value)
	case "out_time_us", "out_time_ms":
		// ffmpeg reports both keys in microseconds.
		micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || micros < 0 || p.duration <= 0 {
			return
		}
		fraction := float64(micros) / 1e6 / p.duration
		if fraction > 1 {
			fraction = 1
		}
		p.report(fraction, p.speed)
	case "progress":
		if value == "end" {
			p.report(1, p.speed)
		}
	}
}
