// Package crop clips rasters to a percentage rectangle.
package crop

import (
	"image"
	"math"

	"tracing-overlay/internal/opencv/conversion"
	"tracing-overlay/internal/opencv/safe"
)

// Bounds holds crop percentages of the raster extent. Left and Top are
// offsets; Right and Bottom are spans measured from those offsets.
type Bounds struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// Full keeps the whole raster.
var Full = Bounds{Left: 0, Right: 100, Top: 0, Bottom: 100}

// ClampPercent folds a value into [0, 100]. NaN becomes 0.
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Clamped returns b with every field folded into [0, 100].
func (b Bounds) Clamped() Bounds {
	return Bounds{
		Left:   ClampPercent(b.Left),
		Right:  ClampPercent(b.Right),
		Top:    ClampPercent(b.Top),
		Bottom: ClampPercent(b.Bottom),
	}
}

// IsFull reports whether b selects the whole raster.
func (b Bounds) IsFull() bool {
	return b.Clamped() == Full
}

// Rect converts b into a pixel rectangle for a width x height raster,
// intersected with the raster extent. The result may be empty.
func Rect(width, height int, b Bounds) image.Rectangle {
	b = b.Clamped()

	x0 := int(float64(width) * b.Left / 100)
	y0 := int(float64(height) * b.Top / 100)
	w := int(float64(width) * b.Right / 100)
	h := int(float64(height) * b.Bottom / 100)

	r := image.Rect(x0, y0, x0+w, y0+h)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// Crop copies the region of src selected by b into a new Mat. A region with
// no pixels produces a 1x1 transparent raster and degenerate reports true.
func Crop(src *safe.Mat, b Bounds) (out *safe.Mat, degenerate bool, err error) {
	if err := safe.ValidateMatForOperation(src, "crop"); err != nil {
		return nil, false, err
	}

	r := Rect(src.Cols(), src.Rows(), b)
	if r.Empty() {
		out, err := conversion.NewTransparent(1, 1)
		return out, true, err
	}

	if r == src.Bounds() {
		out, err := src.Clone()
		return out, false, err
	}

	region := src.GetMat().Region(r)
	defer region.Close()

	// Region shares memory with src; clone to own the pixels.
	out, err = safe.NewMatFromMat(region)
	return out, false, err
}
