package bitrate

import (
	"math"
	"testing"
)

func TestFitTwoSourceJob(t *testing.T) {
	total := TotalDuration(30*60, 60*60)
	if got := Fit(total, 192, 2000, 8000); got != 6329 {
		t.Fatalf("Fit = %d, want 6329", got)
	}
}

func TestFitSaturatesAtBounds(t *testing.T) {
	if got := Fit(60, 192, 2000, 8000); got != 8000 {
		t.Fatalf("short program should hit max, got %d", got)
	}
	if got := Fit(10*3600, 192, 2000, 8000); got != 2000 {
		t.Fatalf("long program should hit min, got %d", got)
	}
	if got := Fit(0, 192, 2000, 8000); got != 8000 {
		t.Fatalf("zero duration should clamp to max, got %d", got)
	}
	if got := Fit(math.NaN(), 192, 2000, 8000); got != 8000 {
		t.Fatalf("NaN duration should clamp to max, got %d", got)
	}
}

func TestFitAudioExceedsCapacity(t *testing.T) {
	// Audio alone overflows the disc, so video falls to the floor.
	if got := Fit(1_000_000, 448, 1500, 8000); got != 1500 {
		t.Fatalf("Fit = %d, want floor", got)
	}
}

func TestFitSwappedBounds(t *testing.T) {
	if got := Fit(10*3600, 192, 8000, 2000); got != 2000 {
		t.Fatalf("Fit = %d, want 2000", got)
	}
}

func TestFitMonotonicInDuration(t *testing.T) {
	prev := math.MaxInt
	for minutes := 1; minutes <= 600; minutes += 7 {
		got := Fit(float64(minutes*60), 192, 1000, 9800)
		if got > prev {
			t.Fatalf("bitrate rose from %d to %d at %d minutes", prev, got, minutes)
		}
		if got < 1000 || got > 9800 {
			t.Fatalf("bitrate %d outside bounds at %d minutes", got, minutes)
		}
		prev = got
	}
}

func TestFitDeterministic(t *testing.T) {
	a := Fit(4321.5, 224, 2000, 8000)
	b := Fit(4321.5, 224, 2000, 8000)
	if a != b {
		t.Fatalf("non-deterministic result %d vs %d", a, b)
	}
}

func TestTotalDurationIgnoresInvalid(t *testing.T) {
	if got := TotalDuration(10, -5, math.NaN(), 20); got != 30 {
		t.Fatalf("TotalDuration = %v", got)
	}
}
