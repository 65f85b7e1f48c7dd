// Package geometry scales, mirrors and rotates BGRA rasters.
//
// Rotation is clockwise on screen for positive angles and always expands the
// output so no corner of the input is clipped. Pixels outside the rotated
// footprint are fully transparent.
package geometry

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"tracing-overlay/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const (
	// MinScale replaces zero, negative and NaN scale factors.
	MinScale = 0.01
	// MaxScale bounds the output allocation.
	MaxScale = 20.0
	// MaxOutputPixels caps the rotated bounding box of a transform. Larger
	// requests are scaled down to fit instead of asking OpenCV for the
	// allocation.
	MaxOutputPixels = 100_000_000

	// sizeEpsilon absorbs float noise before rounding sizes up.
	sizeEpsilon = 1e-9
)

// ClampScale normalises a user supplied scale factor into [MinScale, MaxScale].
func ClampScale(scale float64) float64 {
	switch {
	case math.IsNaN(scale), scale < MinScale:
		return MinScale
	case scale > MaxScale:
		return MaxScale
	default:
		return scale
	}
}

// NormalizeAngle folds any angle into [0, 360). Non-finite input becomes 0.
func NormalizeAngle(degrees float64) float64 {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0
	}

	normalized := math.Mod(degrees, 360)
	if normalized < 0 {
		normalized += 360
	}
	if normalized >= 360 {
		normalized = 0
	}
	return normalized
}

// ScaledSize multiplies width and height by scale, rounding to the nearest
// pixel and never going below one pixel per side.
func ScaledSize(width, height int, scale float64) (int, int) {
	scale = ClampScale(scale)
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return max(1, w), max(1, h)
}

// RotatedSize is the bounding box of a width x height raster rotated by
// degrees about its centre.
func RotatedSize(width, height int, degrees float64) (int, int) {
	switch NormalizeAngle(degrees) {
	case 0, 180:
		return width, height
	case 90, 270:
		return height, width
	}

	rad := NormalizeAngle(degrees) * math.Pi / 180
	cos := math.Abs(math.Cos(rad))
	sin := math.Abs(math.Sin(rad))

	w := float64(width)*cos + float64(height)*sin
	h := float64(width)*sin + float64(height)*cos

	return max(1, int(math.Ceil(w-sizeEpsilon))), max(1, int(math.Ceil(h-sizeEpsilon)))
}

// FitScale returns scale clamped into [MinScale, MaxScale] and reduced
// further when the transformed width x height raster would exceed
// MaxOutputPixels at degrees. The second result reports the budget cut.
func FitScale(width, height int, scale, degrees float64) (float64, bool) {
	return FitScaleWithin(width, height, scale, degrees, MaxOutputPixels)
}

// FitScaleWithin is FitScale with a custom pixel budget.
func FitScaleWithin(width, height int, scale, degrees float64, budget int64) (float64, bool) {
	scale = ClampScale(scale)
	if width <= 0 || height <= 0 || outputPixels(width, height, scale, degrees) <= budget {
		return scale, false
	}

	rad := NormalizeAngle(degrees) * math.Pi / 180
	cos := math.Abs(math.Cos(rad))
	sin := math.Abs(math.Sin(rad))
	boxW := float64(width)*cos + float64(height)*sin
	boxH := float64(width)*sin + float64(height)*cos

	fitted := ClampScale(math.Sqrt(float64(budget) / (boxW * boxH)))
	for fitted > MinScale && outputPixels(width, height, fitted, degrees) > budget {
		fitted = ClampScale(fitted * 0.99)
	}
	return fitted, true
}

func outputPixels(width, height int, scale, degrees float64) int64 {
	w, h := ScaledSize(width, height, scale)
	w, h = RotatedSize(w, h, degrees)
	return int64(w) * int64(h)
}

// Transform resizes src by scale, mirrors it horizontally when mirror is set
// and then rotates it clockwise by angleDegrees with a bilinear filter. The
// scale is fitted to MaxOutputPixels first. The result is a new Mat owned
// by the caller.
func Transform(src *safe.Mat, scale, angleDegrees float64, mirror bool) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "transform"); err != nil {
		return nil, err
	}
	scale, _ = FitScale(src.Cols(), src.Rows(), scale, angleDegrees)

	resized, err := Resize(src, scale)
	if err != nil {
		return nil, err
	}

	current := resized
	if mirror {
		mirrored, err := Mirror(current)
		current.Close()
		if err != nil {
			return nil, err
		}
		current = mirrored
	}

	rotated, err := Rotate(current, angleDegrees, gocv.InterpolationLinear)
	current.Close()
	if err != nil {
		return nil, err
	}

	return rotated, nil
}

// Resize scales src on both axes. Shrinking uses area averaging and growing
// uses bilinear interpolation, which keeps fractional factors alias free.
func Resize(src *safe.Mat, scale float64) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "resize"); err != nil {
		return nil, err
	}

	scale = ClampScale(scale)
	width, height := ScaledSize(src.Cols(), src.Rows(), scale)
	if width == src.Cols() && height == src.Rows() {
		return src.Clone()
	}

	interpolation := gocv.InterpolationLinear
	if scale < 1 {
		interpolation = gocv.InterpolationArea
	}

	result, err := premultiplied(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.Resize(in, out, image.Pt(width, height), 0, 0, interpolation)
	})
	if err != nil {
		return nil, fmt.Errorf("resize to %dx%d failed: %w", width, height, err)
	}
	return result, nil
}

// Mirror reflects src across its vertical axis.
func Mirror(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "mirror"); err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	gocv.Flip(src.GetMat(), &dst, 1)

	result, err := safe.Wrap(dst)
	if err != nil {
		return nil, fmt.Errorf("mirror failed: %w", err)
	}
	return result, nil
}

// Rotate turns src clockwise by degrees about its centre into an expanded
// canvas. Quarter turns are exact; other angles are resampled with
// interpolation and the uncovered area is transparent.
func Rotate(src *safe.Mat, degrees float64, interpolation gocv.InterpolationFlags) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "rotate"); err != nil {
		return nil, err
	}

	angle := NormalizeAngle(degrees)
	switch angle {
	case 0:
		return src.Clone()
	case 90:
		return quarterTurn(src, gocv.Rotate90Clockwise)
	case 180:
		return quarterTurn(src, gocv.Rotate180Clockwise)
	case 270:
		return quarterTurn(src, gocv.Rotate90CounterClockwise)
	}

	width, height := RotatedSize(src.Cols(), src.Rows(), angle)

	m, err := rotationMatrix(src.Cols(), src.Rows(), width, height, angle)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	result, err := premultiplied(src, func(in gocv.Mat, out *gocv.Mat) {
		gocv.WarpAffineWithParams(in, out, m, image.Pt(width, height),
			interpolation, gocv.BorderConstant, color.RGBA{})
	})
	if err != nil {
		return nil, fmt.Errorf("rotation by %.2f degrees failed: %w", angle, err)
	}
	return result, nil
}

// premultiplied runs a resampling op on src with colour premultiplied by
// alpha, so transparent pixels carry no colour into their neighbours. The
// conversion codes only scale channels 0-2 by channel 3 and work for BGRA.
func premultiplied(src *safe.Mat, resample func(in gocv.Mat, out *gocv.Mat)) (*safe.Mat, error) {
	if src.Channels() != 4 {
		dst := gocv.NewMat()
		resample(src.GetMat(), &dst)
		return safe.Wrap(dst)
	}

	mul := gocv.NewMat()
	defer mul.Close()
	gocv.CvtColor(src.GetMat(), &mul, gocv.ColorRGBAToMRGBA)

	sampled := gocv.NewMat()
	defer sampled.Close()
	resample(mul, &sampled)
	if sampled.Empty() {
		return nil, fmt.Errorf("resampling produced an empty mat")
	}

	dst := gocv.NewMat()
	gocv.CvtColor(sampled, &dst, gocv.ColorMRGBAToRGBA)
	return safe.Wrap(dst)
}

func quarterTurn(src *safe.Mat, code gocv.RotateFlag) (*safe.Mat, error) {
	dst := gocv.NewMat()
	gocv.Rotate(src.GetMat(), &dst, code)
	return safe.Wrap(dst)
}

// rotationMatrix builds the 2x3 affine map that rotates a srcW x srcH raster
// clockwise by degrees and centres it in a dstW x dstH canvas. Pixel centres
// sit at (w-1)/2 so a zero rotation is the exact identity.
func rotationMatrix(srcW, srcH, dstW, dstH int, degrees float64) (gocv.Mat, error) {
	rad := degrees * math.Pi / 180
	cos := math.Cos(rad)
	sin := math.Sin(rad)

	cx := float64(srcW-1) / 2
	cy := float64(srcH-1) / 2
	ncx := float64(dstW-1) / 2
	ncy := float64(dstH-1) / 2

	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64FC1)
	if m.Empty() {
		m.Close()
		return m, fmt.Errorf("failed to allocate rotation matrix")
	}

	m.SetDoubleAt(0, 0, cos)
	m.SetDoubleAt(0, 1, -sin)
	m.SetDoubleAt(0, 2, ncx-cos*cx+sin*cy)
	m.SetDoubleAt(1, 0, sin)
	m.SetDoubleAt(1, 1, cos)
	m.SetDoubleAt(1, 2, ncy-sin*cx-cos*cy)

	return m, nil
}
