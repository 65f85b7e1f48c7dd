package conversion

import (
	"image"
	"image/color"
	"testing"

	"tracing-overlay/internal/opencv/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestToBGRA(t *testing.T) {
	tests := []struct {
		name    string
		matType gocv.MatType
		scalar  gocv.Scalar
		want    color.NRGBA
	}{
		{"gray", gocv.MatTypeCV8UC1, gocv.NewScalar(90, 0, 0, 0), color.NRGBA{R: 90, G: 90, B: 90, A: 255}},
		{"bgr", gocv.MatTypeCV8UC3, gocv.NewScalar(10, 20, 30, 0), color.NRGBA{R: 30, G: 20, B: 10, A: 255}},
		{"bgra", gocv.MatTypeCV8UC4, gocv.NewScalar(10, 20, 30, 40), color.NRGBA{R: 30, G: 20, B: 10, A: 40}},
		{"bgr 16 bit", gocv.MatTypeCV16UC3, gocv.NewScalar(257*10, 257*20, 257*30, 0), color.NRGBA{R: 30, G: 20, B: 10, A: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := safe.NewMatFromScalar(4, 6, tt.matType, tt.scalar)
			require.NoError(t, err)
			defer src.Close()

			dst, err := ToBGRA(src)
			require.NoError(t, err)
			defer dst.Close()

			assert.Equal(t, gocv.MatTypeCV8UC4, dst.Type())
			assert.Equal(t, src.Bounds(), dst.Bounds())

			img, err := MatToImage(dst)
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.NRGBAAt(3, 2))
		})
	}
}

func TestImageRoundTripKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 7})

	mat, err := ImageToMat(img)
	require.NoError(t, err)
	defer mat.Close()
	assert.Equal(t, 3, mat.Cols())
	assert.Equal(t, 2, mat.Rows())

	back, err := MatToImage(mat)
	require.NoError(t, err)
	assert.Equal(t, img.Pix, back.Pix)
}

func TestNewTransparent(t *testing.T) {
	mat, err := NewTransparent(1, 1)
	require.NoError(t, err)
	defer mat.Close()

	img, err := MatToImage(mat)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0))
}

func TestMatToImageRequiresBGRA(t *testing.T) {
	gray, err := safe.NewMat(2, 2, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	defer gray.Close()

	_, err = MatToImage(gray)
	assert.Error(t, err)

	_, err = ImageToMat(nil)
	assert.Error(t, err)
}
