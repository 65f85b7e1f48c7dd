package conversion

import (
	"fmt"
	"image"
	"image/color"

	"tracing-overlay/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ToBGRA normalises any decoded raster (gray, BGR, BGRA, 8 or 16 bit) to an
// 8-bit BGRA Mat. The source is left untouched.
func ToBGRA(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "BGRA conversion"); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	srcMat := src.GetMat()
	eightBit := srcMat
	switch src.Type() {
	case gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		eightBit = gocv.NewMat()
		defer eightBit.Close()
		srcMat.ConvertToWithParams(&eightBit, eightBitType(src.Channels()), 1.0/257.0, 0)
	}

	switch src.Channels() {
	case 4:
		return safe.NewMatFromMat(eightBit)
	case 3:
		dst := gocv.NewMat()
		gocv.CvtColor(eightBit, &dst, gocv.ColorBGRToBGRA)
		return safe.Wrap(dst)
	case 1:
		dst := gocv.NewMat()
		gocv.CvtColor(eightBit, &dst, gocv.ColorGrayToBGRA)
		return safe.Wrap(dst)
	default:
		return nil, fmt.Errorf("unsupported channel count: %d", src.Channels())
	}
}

// NewTransparent allocates a BGRA raster with every channel zero.
func NewTransparent(width, height int) (*safe.Mat, error) {
	return safe.NewMatFromScalar(height, width, gocv.MatTypeCV8UC4, gocv.NewScalar(0, 0, 0, 0))
}

// MatToImage converts a BGRA Mat into a non-premultiplied Go image.
func MatToImage(src *safe.Mat) (*image.NRGBA, error) {
	if err := safe.ValidateBGRA(src, "Mat to image conversion"); err != nil {
		return nil, err
	}

	rows := src.Rows()
	cols := src.Cols()

	srcMat := src.GetMat()
	data := srcMat.ToBytes()
	if len(data) < rows*cols*4 {
		return nil, fmt.Errorf("pixel buffer too short: %d bytes for %dx%d", len(data), cols, rows)
	}

	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows*cols; i++ {
		o := i * 4
		img.Pix[o+0] = data[o+2]
		img.Pix[o+1] = data[o+1]
		img.Pix[o+2] = data[o+0]
		img.Pix[o+3] = data[o+3]
	}

	return img, nil
}

// ImageToMat converts a Go image into a BGRA Mat, keeping its alpha.
func ImageToMat(img image.Image) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", width, height)
	}

	data := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			o := (y*width + x) * 4
			var px color.NRGBA
			if nrgba, ok := img.(*image.NRGBA); ok {
				px = nrgba.NRGBAAt(x+bounds.Min.X, y+bounds.Min.Y)
			} else {
				px = color.NRGBAModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.NRGBA)
			}
			data[o+0] = px.B
			data[o+1] = px.G
			data[o+2] = px.R
			data[o+3] = px.A
		}
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, data)
	if err != nil {
		return nil, fmt.Errorf("Mat creation failed: %w", err)
	}
	defer mat.Close()

	// Clone so the Mat no longer references the Go byte slice.
	return safe.NewMatFromMat(mat)
}

func eightBitType(channels int) gocv.MatType {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1
	case 3:
		return gocv.MatTypeCV8UC3
	default:
		return gocv.MatTypeCV8UC4
	}
}
