package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/conversion"
	"tracing-overlay/internal/opencv/memory"
	"tracing-overlay/internal/opencv/safe"
	"tracing-overlay/internal/processing/edges"
	"tracing-overlay/internal/timing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// solidSource builds an opaque BGRA source filled with one colour.
func solidSource(t *testing.T, width, height int, bgra gocv.Scalar) *models.SourceImage {
	t.Helper()

	mat, err := safe.NewMatFromScalar(height, width, gocv.MatTypeCV8UC4, bgra)
	require.NoError(t, err)

	return &models.SourceImage{
		ID:     t.Name(),
		Mat:    mat,
		Width:  width,
		Height: height,
		Format: "png",
		Path:   "memory.png",
	}
}

func imageSource(t *testing.T, img image.Image) *models.SourceImage {
	t.Helper()

	mat, err := conversion.ImageToMat(img)
	require.NoError(t, err)

	return &models.SourceImage{ID: t.Name(), Mat: mat, Width: mat.Cols(), Height: mat.Rows(), Format: "png"}
}

func opaqueAlphaCount(img *image.NRGBA) int {
	count := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			count++
		}
	}
	return count
}

func TestWindowSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          int
	}{
		{"pythagorean", 300, 400, 500},
		{"square", 200, 200, 283},
		{"tiny", 1, 1, MinWindowSize},
		{"just under floor", 141, 141, MinWindowSize},
		{"just over floor", 142, 142, 201},
		{"wide strip", 1000, 1, 1001},
		{"zero", 0, 0, MinWindowSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WindowSize(tt.width, tt.height))
		})
	}

	assert.Equal(t, 50, WindowSizeWithMin(10, 10, 50))
}

func TestRenderScaledTranslucentSquare(t *testing.T) {
	source := solidSource(t, 100, 100, gocv.NewScalar(30, 60, 90, 255))
	defer source.Close()

	params := models.DefaultParameters()
	params.Scale = 2.0
	params.Transparency = 128

	result := Render(context.Background(), source, params)
	require.False(t, result.Empty())
	defer result.Close()

	assert.NoError(t, result.Err)
	assert.False(t, result.Degenerate)
	assert.Equal(t, image.Rect(0, 0, 200, 200), result.Bounds())
	assert.Equal(t, 283, result.WindowSize)

	img, err := conversion.MatToImage(result.Raster)
	require.NoError(t, err)
	for i := 0; i < len(img.Pix); i += 4 {
		require.Equal(t, []uint8{90, 60, 30}, img.Pix[i:i+3])
		require.InDelta(t, 128, img.Pix[i+3], 1)
	}
}

func TestRenderOutlineOfSolidColourIsEmpty(t *testing.T) {
	source := solidSource(t, 80, 60, gocv.NewScalar(0, 0, 255, 255))
	defer source.Close()

	// Quarter turns keep the raster fully opaque, so nothing but the colour
	// could produce an edge.
	for _, angle := range []float64{0, 90, 180} {
		params := models.DefaultParameters()
		params.Outline = true
		params.Scale = 1.5
		params.AngleDegrees = angle
		params.Mirror = true

		result := Render(context.Background(), source, params)
		require.False(t, result.Empty())

		img, err := conversion.MatToImage(result.Raster)
		require.NoError(t, err)
		assert.Zero(t, opaqueAlphaCount(img), "angle %v", angle)
		result.Close()
	}
}

func TestRenderRotatedOutlineTracesFootprint(t *testing.T) {
	source := solidSource(t, 100, 100, gocv.NewScalar(255, 255, 255, 255))
	defer source.Close()

	params := models.DefaultParameters()
	params.Outline = true
	params.AngleDegrees = 30

	result := Render(context.Background(), source, params)
	require.False(t, result.Empty())
	defer result.Close()

	require.NoError(t, result.Err)
	assert.Equal(t, 137, result.Raster.Cols())
	assert.Equal(t, 137, result.Raster.Rows())

	img, err := conversion.MatToImage(result.Raster)
	require.NoError(t, err)

	assert.Positive(t, opaqueAlphaCount(img))
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] != 0 {
			require.Equal(t, []uint8{255, 255, 255, 255}, img.Pix[i:i+4])
		}
	}
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(68, 68))
}

func TestRenderOutlineIgnoresCrop(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 60, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			if x >= 30 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			}
		}
	}
	source := imageSource(t, img)
	defer source.Close()

	params := models.DefaultParameters()
	params.Outline = true
	params.OutlineColor = edges.Green
	params.CropRight = 10

	result := Render(context.Background(), source, params)
	require.False(t, result.Empty())
	defer result.Close()

	assert.Equal(t, image.Rect(0, 0, 60, 40), result.Bounds())

	out, err := conversion.MatToImage(result.Raster)
	require.NoError(t, err)
	assert.Positive(t, opaqueAlphaCount(out))
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+3] != 0 {
			assert.Equal(t, []uint8{0, 255, 0, 255}, out.Pix[i:i+4])
		}
	}
}

func TestRenderWithoutSourceIsEmpty(t *testing.T) {
	result := Render(context.Background(), nil, models.DefaultParameters())
	assert.True(t, result.Empty())
	assert.Zero(t, result.WindowSize)
	result.Close()
}

func TestRenderDegenerateCrop(t *testing.T) {
	source := solidSource(t, 50, 50, gocv.NewScalar(1, 2, 3, 255))
	defer source.Close()

	params := models.DefaultParameters()
	params.CropLeft = 80
	params.CropRight = 0

	result := Render(context.Background(), source, params)
	require.False(t, result.Empty())
	defer result.Close()

	assert.True(t, result.Degenerate)
	assert.Equal(t, 1, result.Raster.Area())
	assert.Equal(t, MinWindowSize, result.WindowSize)

	img, err := conversion.MatToImage(result.Raster)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0))
}

func TestRenderCancelledFallsBackToTransparentPixel(t *testing.T) {
	source := solidSource(t, 20, 20, gocv.NewScalar(1, 2, 3, 255))
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewRenderer(logger.NoOpLogger{}, nil).Render(ctx, source, models.DefaultParameters())
	require.False(t, result.Empty())
	defer result.Close()

	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 1, result.Raster.Area())
}

func TestRenderDoesNotTouchSource(t *testing.T) {
	source := solidSource(t, 40, 30, gocv.NewScalar(9, 8, 7, 255))
	defer source.Close()

	params := models.DefaultParameters()
	params.Scale = 0.5
	params.AngleDegrees = 33
	params.Transparency = 10

	for i := 0; i < 3; i++ {
		result := Render(context.Background(), source, params)
		result.Close()
	}

	assert.True(t, source.Mat.IsValid())
	assert.Equal(t, 40, source.Mat.Cols())
	assert.Equal(t, 30, source.Mat.Rows())
}

func TestRendererRecordsStageTimings(t *testing.T) {
	source := solidSource(t, 20, 20, gocv.NewScalar(1, 2, 3, 255))
	defer source.Close()

	tracker := timing.NewTracker()
	renderer := NewRenderer(logger.NoOpLogger{}, tracker)
	assert.Equal(t, []string{StageTransform, StageCrop, StageOutline, StageComposite}, renderer.Stages())

	params := models.DefaultParameters()
	params.CropRight = 50
	params.Transparency = 100

	result := renderer.Render(context.Background(), source, params)
	result.Close()

	assert.Equal(t, []string{StageComposite, StageCrop, StageTransform}, tracker.Operations())
}

func TestCoordinatorDispatch(t *testing.T) {
	mem := memory.NewManager(logger.NoOpLogger{})
	c := NewCoordinator(logger.NoOpLogger{}, timing.NewTracker(), mem)
	defer c.Close()

	snapshot := c.Dispatch(models.ParameterChanged{Field: models.FieldScale, Value: 2.0})
	assert.True(t, snapshot.Empty())
	assert.Equal(t, 2.0, snapshot.Parameters.Scale)

	snapshot = c.Open(solidSource(t, 100, 100, gocv.NewScalar(10, 20, 30, 255)))
	require.False(t, snapshot.Empty())
	assert.Equal(t, 200, snapshot.Image.Bounds().Dx())
	assert.Equal(t, 283, snapshot.WindowSize)

	snapshot = c.Dispatch(models.ParameterChanged{Field: models.FieldTransparencyPercent, Value: 50.0})
	assert.Equal(t, 128, snapshot.Parameters.Transparency)
	assert.Equal(t, uint8(128), snapshot.Image.NRGBAAt(10, 10).A)

	// Out of range values are clamped and still render.
	snapshot = c.Dispatch(models.ParameterChanged{Field: models.FieldScale, Value: -4.0})
	require.False(t, snapshot.Empty())
	assert.Equal(t, 0.01, snapshot.Parameters.Scale)
	assert.Equal(t, 1, snapshot.Image.Bounds().Dx())

	snapshot = c.Dispatch(models.ParameterChanged{Field: models.FieldReset})
	assert.Equal(t, models.DefaultParameters(), snapshot.Parameters)
	assert.Equal(t, 100, snapshot.Image.Bounds().Dx())

	// Only the source and the latest render stay alive.
	assert.ElementsMatch(t, []string{"source", "result"}, mem.Active())
}

func TestCoordinatorOpenReplacesSource(t *testing.T) {
	mem := memory.NewManager(nil)
	c := NewCoordinator(nil, nil, mem)

	first := solidSource(t, 10, 10, gocv.NewScalar(0, 0, 0, 255))
	second := solidSource(t, 30, 20, gocv.NewScalar(0, 0, 0, 255))

	c.Open(first)
	snapshot := c.Open(second)

	assert.False(t, first.Mat.IsValid())
	assert.Equal(t, image.Rect(0, 0, 30, 20), snapshot.Image.Bounds())

	info, ok := c.SourceInfo()
	require.True(t, ok)
	assert.Equal(t, 30, info.Width)
	assert.Nil(t, info.Mat)

	c.Close()
	assert.False(t, second.Mat.IsValid())
	assert.False(t, c.HasSource())
	assert.Empty(t, mem.Active())
}

func TestCoordinatorExport(t *testing.T) {
	c := NewCoordinator(nil, nil, nil)
	defer c.Close()

	var buf bytes.Buffer
	err := c.Export(&buf, "png")
	assert.True(t, errors.Is(err, models.NoSourceLoaded))

	c.Open(solidSource(t, 12, 8, gocv.NewScalar(50, 100, 150, 255)))
	c.Dispatch(models.ParameterChanged{Field: models.FieldTransparency, Value: 64})

	require.NoError(t, c.Export(&buf, "png"))
	img, err := png.Decode(&buf)
	require.NoError(t, err)

	nrgba, ok := img.(*image.NRGBA)
	require.True(t, ok, "got %T", img)
	assert.Equal(t, color.NRGBA{R: 150, G: 100, B: 50, A: 64}, nrgba.NRGBAAt(3, 3))

	path := filepath.Join(t.TempDir(), "overlay.jpg")
	require.NoError(t, c.ExportPath(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	config, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 12, config.Width)
	assert.Equal(t, 8, config.Height)
}

func TestLoaderNormalisesToBGRA(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 7, 5))
	gray.SetGray(2, 3, color.Gray{Y: 200})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gray))

	loader := NewLoader(logger.NoOpLogger{}, nil)
	source, err := loader.LoadFromBytes(buf.Bytes(), ".png")
	require.NoError(t, err)
	defer source.Close()

	assert.Equal(t, "png", source.Format)
	assert.Equal(t, 7, source.Width)
	assert.Equal(t, 5, source.Height)
	assert.NotEmpty(t, source.ID)
	assert.Equal(t, gocv.MatTypeCV8UC4, source.Mat.Type())

	img, err := conversion.MatToImage(source.Mat)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 200, G: 200, B: 200, A: 255}, img.NRGBAAt(2, 3))
}

func TestLoaderFromPathKeepsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})

	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	source, err := NewLoader(nil, nil).LoadFromPath(path)
	require.NoError(t, err)
	defer source.Close()

	assert.Equal(t, path, source.Path)
	got, err := conversion.MatToImage(source.Mat)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 40}, got.NRGBAAt(1, 1))
}

func TestLoaderRejectsBadInput(t *testing.T) {
	loader := NewLoader(nil, nil)

	_, err := loader.LoadFromBytes(nil, ".png")
	assert.Error(t, err)

	_, err = loader.LoadFromBytes([]byte("definitely not an image"), ".png")
	assert.Error(t, err)

	_, err = loader.LoadFromPath(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestSaverFormatFromPath(t *testing.T) {
	saver := NewSaver(nil, nil)

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"out.png", "png", false},
		{"out.JPG", "jpeg", false},
		{"out.jpeg", "jpeg", false},
		{"out.tif", "tiff", false},
		{"out.bmp", "bmp", false},
		{"out.webp", "webp", false},
		{"out", "png", false},
		{"out.gif", "", true},
	}

	for _, tt := range tests {
		got, err := saver.FormatFromPath(tt.path)
		if tt.wantErr {
			assert.Error(t, err, tt.path)
			continue
		}
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	require.NoError(t, saver.SetDefaultFormat("tiff"))
	got, err := saver.FormatFromPath("out")
	require.NoError(t, err)
	assert.Equal(t, "tiff", got)
	assert.Error(t, saver.SetDefaultFormat("gif"))
}

func TestSaverEncodeRoundTrip(t *testing.T) {
	raster, err := safe.NewMatFromScalar(6, 9, gocv.MatTypeCV8UC4, gocv.NewScalar(200, 100, 50, 77))
	require.NoError(t, err)
	defer raster.Close()

	saver := NewSaver(nil, nil)
	loader := NewLoader(nil, nil)

	data, err := saver.Encode(raster, "png")
	require.NoError(t, err)

	source, err := loader.LoadFromBytes(data, ".png")
	require.NoError(t, err)
	defer source.Close()

	img, err := conversion.MatToImage(source.Mat)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 50, G: 100, B: 200, A: 77}, img.NRGBAAt(4, 2))

	for _, format := range []string{"jpeg", "tiff", "bmp"} {
		data, err := saver.Encode(raster, format)
		require.NoError(t, err, format)

		config, sniffed, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err, format)
		assert.Equal(t, format, sniffed)
		assert.Equal(t, 9, config.Width, format)
		assert.Equal(t, 6, config.Height, format)
	}

	_, err = saver.Encode(raster, "gif")
	assert.Error(t, err)
}

type recordingLogger struct {
	logger.NoOpLogger
	warnings []map[string]interface{}
}

func (r *recordingLogger) Warning(component, message string, fields map[string]interface{}) {
	r.warnings = append(r.warnings, fields)
}

func TestRenderKeepsOutputWithinPixelBudget(t *testing.T) {
	source := solidSource(t, 50, 50, gocv.NewScalar(5, 6, 7, 255))
	defer source.Close()

	log := &recordingLogger{}
	renderer := NewRenderer(log, nil)
	renderer.SetMaxOutputPixels(10_000)

	params := models.DefaultParameters()
	params.Scale = 20

	result := renderer.Render(context.Background(), source, params)
	require.False(t, result.Empty())
	defer result.Close()

	require.NoError(t, result.Err)
	assert.LessOrEqual(t, result.Raster.Area(), 10_000)
	assert.Greater(t, result.Raster.Area(), 9_000)

	require.Len(t, log.warnings, 1)
	assert.Equal(t, models.InvalidParameter.String(), log.warnings[0]["kind"])
	assert.Equal(t, models.FieldScale.String(), log.warnings[0]["parameter"])

	log.warnings = nil
	params.Scale = 2
	small := renderer.Render(context.Background(), source, params)
	defer small.Close()
	assert.Equal(t, 10_000, small.Raster.Area())
	assert.Empty(t, log.warnings)
}

func TestRotatedRenderFitsWindow(t *testing.T) {
	source := solidSource(t, 120, 40, gocv.NewScalar(1, 1, 1, 255))
	defer source.Close()

	for _, angle := range []float64{15, 45, 90, 200, -30} {
		params := models.DefaultParameters()
		params.AngleDegrees = angle

		result := Render(context.Background(), source, params)
		require.False(t, result.Empty())

		diagonal := math.Hypot(120, 40)
		assert.GreaterOrEqual(t, float64(result.WindowSize), diagonal, "angle %v", angle)
		assert.LessOrEqual(t, result.Raster.Cols(), result.WindowSize)
		assert.LessOrEqual(t, result.Raster.Rows(), result.WindowSize)
		result.Close()
	}
}
