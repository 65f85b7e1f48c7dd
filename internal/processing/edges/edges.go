// Package edges turns a BGRA raster into coloured line art.
package edges

import (
	"fmt"

	"tracing-overlay/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	DefaultLowThreshold  = 100
	DefaultHighThreshold = 200
)

// Luminance converts src to a single channel gray image premultiplied by
// alpha, so fully transparent pixels read as black regardless of their
// stored colour.
func Luminance(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateBGRA(src, "luminance"); err != nil {
		return nil, err
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src.GetMat(), &gray, gocv.ColorBGRAToGray)

	channels := gocv.Split(src.GetMat())
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != 4 {
		return nil, fmt.Errorf("expected 4 channels, got %d", len(channels))
	}

	dst := gocv.NewMat()
	gocv.MultiplyWithParams(gray, channels[3], &dst, 1.0/255.0, -1)

	result, err := safe.Wrap(dst)
	if err != nil {
		return nil, fmt.Errorf("luminance failed: %w", err)
	}
	return result, nil
}

// Detect runs the Canny detector on src and returns a binary mask where edge
// pixels are 255. Thresholds below zero are treated as zero; inverted
// thresholds are accepted.
func Detect(src *safe.Mat, low, high int) (*safe.Mat, error) {
	lum, err := Luminance(src)
	if err != nil {
		return nil, err
	}
	defer lum.Close()

	mask := gocv.NewMat()
	gocv.Canny(lum.GetMat(), &mask, float32(max(0, low)), float32(max(0, high)))

	result, err := safe.Wrap(mask)
	if err != nil {
		return nil, fmt.Errorf("edge detection failed: %w", err)
	}
	return result, nil
}

// ExtractEdges detects edges in src and paints them opaque in c on a fully
// transparent canvas of the same size. Non-edge pixels are (0,0,0,0).
func ExtractEdges(src *safe.Mat, low, high int, c PaletteColor) (*safe.Mat, error) {
	mask, err := Detect(src, low, high)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	return Paint(mask, c)
}

// Paint colours the non-zero pixels of mask with c.
func Paint(mask *safe.Mat, c PaletteColor) (*safe.Mat, error) {
	if err := safe.ValidateMask(mask, mask.Rows(), mask.Cols(), "edge paint"); err != nil {
		return nil, err
	}

	rows, cols := mask.Rows(), mask.Cols()

	canvas, err := safe.NewMatFromScalar(rows, cols, gocv.MatTypeCV8UC4, gocv.NewScalar(0, 0, 0, 0))
	if err != nil {
		return nil, err
	}

	ink := gocv.NewMatWithSizeFromScalar(c.Scalar(), rows, cols, gocv.MatTypeCV8UC4)
	defer ink.Close()

	dst := canvas.GetMat()
	ink.CopyToWithMask(&dst, mask.GetMat())

	return canvas, nil
}

// CountEdges is the number of non-transparent pixels in a painted raster.
func CountEdges(painted *safe.Mat) (int, error) {
	if err := safe.ValidateBGRA(painted, "edge count"); err != nil {
		return 0, err
	}

	channels := gocv.Split(painted.GetMat())
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	return gocv.CountNonZero(channels[3]), nil
}
