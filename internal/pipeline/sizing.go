package pipeline

import "math"

// MinWindowSize is the smallest side of the overlay window in pixels.
const MinWindowSize = 200

// WindowSize is the side of the square window that contains a width x
// height raster at any rotation: the rounded-up diagonal, at least
// MinWindowSize.
func WindowSize(width, height int) int {
	return WindowSizeWithMin(width, height, MinWindowSize)
}

// WindowSizeWithMin is WindowSize with a custom floor.
func WindowSizeWithMin(width, height, minSize int) int {
	diagonal := math.Ceil(math.Hypot(float64(max(0, width)), float64(max(0, height))))
	return max(minSize, int(diagonal))
}
