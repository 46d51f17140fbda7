// Package estimate computes advisory generation-time estimates surfaced to
// callers at submission. Estimates never influence worker behavior.
package estimate

const (
	baseSeconds    = 10
	baselineEdge   = 512
	baselineSteps  = 50
	videoStepCount = 20
	// Per-frame video generation is assumed to run at a quarter of the
	// single-image cost.
	videoSpeedFactor = 4
)

// ImageSeconds scales a fixed base linearly with pixel count relative to a
// 512x512 baseline and with step count relative to 50 steps.
func ImageSeconds(width, height, steps int) int {
	pixelFactor := float64(width*height) / float64(baselineEdge*baselineEdge)
	stepFactor := float64(steps) / float64(baselineSteps)
	return int(baseSeconds * pixelFactor * stepFactor)
}

// VideoFrames returns the total frame count for a clip.
func VideoFrames(duration float64, fps int) int {
	return int(duration * float64(fps))
}

// VideoSeconds multiplies the per-frame estimate, taken at a reduced step
// count and the assumed speedup, by the total frame count.
func VideoSeconds(duration float64, width, height, fps int) int {
	frames := VideoFrames(duration, fps)
	perFrame := float64(ImageSeconds(width, height, videoStepCount)) / videoSpeedFactor
	return int(float64(frames) * perFrame)
}
