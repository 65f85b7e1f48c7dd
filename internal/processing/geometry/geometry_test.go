package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"

	"tracing-overlay/internal/opencv/conversion"
	"tracing-overlay/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

// newRaster builds a BGRA Mat from a painter callback.
func newRaster(t *testing.T, width, height int, paint func(x, y int) color.NRGBA) *safe.Mat {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, paint(x, y))
		}
	}

	mat, err := conversion.ImageToMat(img)
	require.NoError(t, err)
	t.Cleanup(mat.Close)
	return mat
}

func pixels(t *testing.T, mat *safe.Mat) *image.NRGBA {
	t.Helper()
	img, err := conversion.MatToImage(mat)
	require.NoError(t, err)
	return img
}

func halves(width int) func(x, y int) color.NRGBA {
	return func(x, y int) color.NRGBA {
		if x < width/2 {
			return red
		}
		return blue
	}
}

func TestClampScale(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{"regular", 2, 2},
		{"zero", 0, MinScale},
		{"negative", -3, MinScale},
		{"nan", math.NaN(), MinScale},
		{"huge", math.Inf(1), MaxScale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampScale(tt.input))
		})
	}
}

func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{0, 0},
		{-90, 270},
		{360, 0},
		{725, 5},
		{-720, 0},
		{math.NaN(), 0},
		{math.Inf(-1), 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, NormalizeAngle(tt.input), 1e-9, "NormalizeAngle(%v)", tt.input)
	}
}

func TestScaledAndRotatedSize(t *testing.T) {
	w, h := ScaledSize(100, 60, 1.5)
	assert.Equal(t, []int{150, 90}, []int{w, h})

	w, h = ScaledSize(3, 3, 0)
	assert.Equal(t, []int{1, 1}, []int{w, h})

	tests := []struct {
		angle float64
		w, h  int
	}{
		{0, 100, 50},
		{90, 50, 100},
		{-90, 50, 100},
		{180, 100, 50},
		{45, 107, 107},
		{30, 112, 94},
	}

	for _, tt := range tests {
		w, h := RotatedSize(100, 50, tt.angle)
		assert.Equal(t, []int{tt.w, tt.h}, []int{w, h}, "RotatedSize at %v", tt.angle)
	}
}

func TestTransformAreaFollowsScale(t *testing.T) {
	src := newRaster(t, 100, 60, func(x, y int) color.NRGBA { return white })
	sourceArea := float64(src.Area())

	for _, scale := range []float64{0.33, 0.5, 1, 1.5, 2, 3.7} {
		out, err := Transform(src, scale, 0, false)
		require.NoError(t, err)

		want := sourceArea * scale * scale
		// One row and one column of rounding on each axis.
		tolerance := float64(out.Cols()+out.Rows()) + 1
		assert.InDelta(t, want, float64(out.Area()), tolerance, "scale %v", scale)
		out.Close()
	}
}

func TestTransformIdentity(t *testing.T) {
	src := newRaster(t, 31, 17, func(x, y int) color.NRGBA {
		return color.NRGBA{R: uint8(x * 8), G: uint8(y * 15), B: 90, A: 255}
	})

	out, err := Transform(src, 1, 0, false)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, pixels(t, src).Pix, pixels(t, out).Pix)

	// A full turn is the identity too.
	full, err := Transform(src, 1, 360, false)
	require.NoError(t, err)
	defer full.Close()
	assert.Equal(t, pixels(t, src).Pix, pixels(t, full).Pix)
}

func TestMirrorTwiceIsIdentity(t *testing.T) {
	src := newRaster(t, 20, 10, halves(20))

	once, err := Transform(src, 1, 0, true)
	require.NoError(t, err)
	defer once.Close()

	twice, err := Transform(once, 1, 0, true)
	require.NoError(t, err)
	defer twice.Close()

	plain, err := Transform(src, 1, 0, false)
	require.NoError(t, err)
	defer plain.Close()

	assert.Equal(t, pixels(t, plain).Pix, pixels(t, twice).Pix)

	mirrored := pixels(t, once)
	assert.Equal(t, blue, mirrored.NRGBAAt(0, 5))
	assert.Equal(t, red, mirrored.NRGBAAt(19, 5))
}

func TestQuarterTurnIsClockwise(t *testing.T) {
	src := newRaster(t, 4, 2, func(x, y int) color.NRGBA {
		if x == 0 && y == 0 {
			return red
		}
		return white
	})

	out, err := Transform(src, 1, 90, false)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 2, out.Cols())
	assert.Equal(t, 4, out.Rows())

	img := pixels(t, out)
	assert.Equal(t, red, img.NRGBAAt(1, 0))
	assert.Equal(t, white, img.NRGBAAt(0, 0))
}

func TestArbitraryRotationIsClockwiseAndTransparentOutside(t *testing.T) {
	// White square with a red marker right of centre.
	src := newRaster(t, 41, 41, func(x, y int) color.NRGBA {
		if x >= 35 && y >= 18 && y <= 22 {
			return red
		}
		return white
	})

	out, err := Transform(src, 1, 89, false)
	require.NoError(t, err)
	defer out.Close()

	w, h := RotatedSize(41, 41, 89)
	assert.Equal(t, w, out.Cols())
	assert.Equal(t, h, out.Rows())

	img := pixels(t, out)
	marker := img.NRGBAAt(out.Cols()/2, out.Rows()-5)
	assert.Greater(t, marker.R, uint8(200))
	assert.Less(t, marker.G, uint8(60))

	rotated, err := Transform(src, 1, 30, false)
	require.NoError(t, err)
	defer rotated.Close()

	corners := pixels(t, rotated)
	assert.Equal(t, color.NRGBA{}, corners.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{}, corners.NRGBAAt(rotated.Cols()-1, rotated.Rows()-1))
	assert.Equal(t, uint8(255), corners.NRGBAAt(rotated.Cols()/2, rotated.Rows()/2).A)
}

func TestMirrorHappensBeforeRotation(t *testing.T) {
	src := newRaster(t, 4, 2, func(x, y int) color.NRGBA {
		if x == 0 && y == 0 {
			return red
		}
		return white
	})

	out, err := Transform(src, 1, 90, true)
	require.NoError(t, err)
	defer out.Close()

	// Mirror moves the marker to the top-right corner, the clockwise
	// quarter turn then carries it to the bottom-right.
	img := pixels(t, out)
	assert.Equal(t, red, img.NRGBAAt(1, 3))
}

func TestResizeClampsInvalidScale(t *testing.T) {
	src := newRaster(t, 300, 200, func(x, y int) color.NRGBA { return white })

	out, err := Resize(src, -1)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, 3, out.Cols())
	assert.Equal(t, 2, out.Rows())
}

func TestRotateRejectsClosedMat(t *testing.T) {
	mat, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC4)
	require.NoError(t, err)
	mat.Close()

	_, err = Rotate(mat, 10, gocv.InterpolationLinear)
	assert.Error(t, err)
}

func TestFitScale(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		scale, angle  float64
		cut           bool
	}{
		{"small source keeps scale", 100, 100, 20, 0, false},
		{"photo at max scale", 4000, 3000, 20, 0, true},
		{"rotation grows the box", 7000, 7000, 1.4, 45, true},
		{"large source under budget", 7000, 7000, 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := FitScale(tt.width, tt.height, tt.scale, tt.angle)
			assert.Equal(t, tt.cut, cut)
			if !tt.cut {
				assert.Equal(t, tt.scale, got)
				return
			}

			assert.Less(t, got, tt.scale)
			w, h := ScaledSize(tt.width, tt.height, got)
			w, h = RotatedSize(w, h, tt.angle)
			assert.LessOrEqual(t, int64(w)*int64(h), int64(MaxOutputPixels))
			// Close to the budget, not collapsed to the floor.
			assert.Greater(t, int64(w)*int64(h), int64(MaxOutputPixels)*9/10)
		})
	}

	got, cut := FitScaleWithin(100, 100, 20, 0, 10_000)
	assert.True(t, cut)
	assert.InDelta(t, 1.0, got, 0.02)
}

func assertOpaqueColourIsWhite(t *testing.T, img *image.NRGBA) {
	t.Helper()

	partial := 0
	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a == 0 {
			continue
		}
		if a < 255 {
			partial++
		}
		require.Equal(t, []uint8{255, 255, 255}, img.Pix[i:i+3], "pixel %d alpha %d", i/4, a)
	}
	assert.Positive(t, partial, "expected anti-aliased border pixels")
}

func TestRotationDoesNotDarkenBorders(t *testing.T) {
	src := newRaster(t, 40, 40, func(x, y int) color.NRGBA { return white })

	out, err := Transform(src, 1, 30, false)
	require.NoError(t, err)
	defer out.Close()

	assertOpaqueColourIsWhite(t, pixels(t, out))
}

func TestShrinkIgnoresColourUnderTransparency(t *testing.T) {
	// Left half hides red under zero alpha.
	src := newRaster(t, 41, 41, func(x, y int) color.NRGBA {
		if x < 20 {
			return color.NRGBA{R: 255}
		}
		return white
	})

	out, err := Resize(src, 0.3)
	require.NoError(t, err)
	defer out.Close()

	assertOpaqueColourIsWhite(t, pixels(t, out))
}
