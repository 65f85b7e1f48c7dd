// Package composite applies a uniform opacity to BGRA rasters.
package composite

import (
	"fmt"

	"tracing-overlay/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	Transparent = 0
	Opaque      = 255
)

// ClampTransparency folds v into [Transparent, Opaque].
func ClampTransparency(v int) int {
	return min(Opaque, max(Transparent, v))
}

// Composite draws src onto a transparent canvas of the same size with
// opacity transparency/255. Colour channels are copied unchanged and alpha
// is scaled, so a value of 255 is the identity.
func Composite(src *safe.Mat, transparency int) (*safe.Mat, error) {
	if err := safe.ValidateBGRA(src, "composite"); err != nil {
		return nil, err
	}

	transparency = ClampTransparency(transparency)
	if transparency == Opaque {
		return src.Clone()
	}

	channels := gocv.Split(src.GetMat())
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != 4 {
		return nil, fmt.Errorf("expected 4 channels, got %d", len(channels))
	}

	// MultiplyFloat rounds and saturates in place.
	channels[3].MultiplyFloat(float32(transparency) / Opaque)

	dst := gocv.NewMat()
	gocv.Merge(channels, &dst)

	result, err := safe.Wrap(dst)
	if err != nil {
		return nil, fmt.Errorf("composite failed: %w", err)
	}
	return result, nil
}
