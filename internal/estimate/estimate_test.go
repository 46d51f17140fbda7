package estimate

import "testing"

func TestImageSecondsBaseline(t *testing.T) {
	if got := ImageSeconds(512, 512, 50); got != 10 {
		t.Fatalf("baseline estimate = %d, want 10", got)
	}
}

func TestImageSecondsScalesWithPixels(t *testing.T) {
	if got := ImageSeconds(1024, 1024, 50); got != 40 {
		t.Fatalf("4x pixels estimate = %d, want 40", got)
	}
}

func TestImageSecondsScalesWithSteps(t *testing.T) {
	if got := ImageSeconds(512, 512, 100); got != 20 {
		t.Fatalf("2x steps estimate = %d, want 20", got)
	}
	if got := ImageSeconds(512, 512, 20); got != 4 {
		t.Fatalf("reduced steps estimate = %d, want 4", got)
	}
}

func TestVideoFrames(t *testing.T) {
	if got := VideoFrames(30, 24); got != 720 {
		t.Fatalf("frames = %d, want 720", got)
	}
}

func TestVideoSecondsMaxDurationClip(t *testing.T) {
	// 30s at 24fps is 720 frames; the per-frame estimate at 20 steps on a
	// 512x512 clip is 4s, quartered to 1s per frame.
	if got := VideoSeconds(30, 512, 512, 24); got != 720 {
		t.Fatalf("video estimate = %d, want 720", got)
	}
}

func TestVideoSecondsShortClip(t *testing.T) {
	if got := VideoSeconds(2, 512, 512, 12); got != 24 {
		t.Fatalf("short clip estimate = %d, want 24", got)
	}
}
