// Package bitrate computes the single video bitrate that lets a set of
// sources fill one single-layer DVD.
package bitrate

import "math"

// DiscCapacityBytes is the usable payload budget of a DVD-5 (4.1 GiB). It sits
// below the nominal 4.7 GB to leave room for IFO/BUP files and filesystem
// overhead.
const DiscCapacityBytes int64 = 4_402_341_478

// Fit returns the video bitrate in kbps for the given total duration and
// audio bitrate, clamped to [minKbps, maxKbps]. Durations below one second
// are treated as one second. Swapped bounds are reordered.
func Fit(durationSeconds float64, audioKbps, minKbps, maxKbps int) int {
	if minKbps > maxKbps {
		minKbps, maxKbps = maxKbps, minKbps
	}
	if math.IsNaN(durationSeconds) || durationSeconds < 1 {
		durationSeconds = 1
	}
	if audioKbps < 0 {
		audioKbps = 0
	}
	available := float64(DiscCapacityBytes) * 8
	audioBits := durationSeconds * float64(audioKbps) * 1000
	videoBits := math.Max(0, available-audioBits)
	kbps := math.Floor(videoBits / durationSeconds / 1000)
	return clamp(kbps, minKbps, maxKbps)
}

// TotalDuration sums durations, ignoring negative or NaN values.
func TotalDuration(durations ...float64) float64 {
	total := 0.0
	for _, d := range durations {
		if d > 0 {
			total += d
		}
	}
	return total
}

func clamp(value float64, low, high int) int {
	if math.IsInf(value, 1) || value > float64(high) {
		return high
	}
	if value < float64(low) {
		return low
	}
	return int(value)
}
