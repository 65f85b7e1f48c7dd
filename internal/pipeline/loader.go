package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/conversion"
	"tracing-overlay/internal/opencv/safe"
	"tracing-overlay/internal/processing/geometry"

	"fyne.io/fyne/v2"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedFormats lists the raster formats accepted on open and export.
var SupportedFormats = []string{"png", "jpeg", "bmp", "tiff", "webp"}

// MaxSourcePixels rejects sources that would not fit a sensible overlay.
const MaxSourcePixels = geometry.MaxOutputPixels

type Loader struct {
	logger        Logger
	timingTracker TimingTracker
}

func NewLoader(log Logger, tracker TimingTracker) *Loader {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Loader{logger: log, timingTracker: tracker}
}

func (l *Loader) LoadFromReader(reader fyne.URIReadCloser) (*models.SourceImage, error) {
	originalURI := reader.URI()

	l.logger.Debug("Loader", "loading image", map[string]interface{}{
		"path":      originalURI.Path(),
		"extension": originalURI.Extension(),
	})

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	source, err := l.LoadFromBytes(data, originalURI.Extension())
	if err != nil {
		return nil, err
	}
	source.Path = originalURI.Path()
	return source, nil
}

func (l *Loader) LoadFromPath(path string) (*models.SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	source, err := l.LoadFromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	source.Path = path
	return source, nil
}

// LoadFromBytes decodes data into an 8-bit BGRA source. extension is only
// a hint; the format is sniffed from the data.
func (l *Loader) LoadFromBytes(data []byte, extension string) (*models.SourceImage, error) {
	if l.timingTracker != nil {
		ctx := l.timingTracker.StartTiming("load")
		defer l.timingTracker.EndTiming(ctx)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	config, sniffed, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unrecognised image data: %w", err)
	}

	format := determineActualFormat(extension, sniffed)
	if !isSupported(format) {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}

	if config.Width <= 0 || config.Height <= 0 || config.Width*config.Height > MaxSourcePixels {
		return nil, fmt.Errorf("unsupported image dimensions %dx%d", config.Width, config.Height)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image with OpenCV: %w", err)
	}

	decoded, err := safe.Wrap(mat)
	if err != nil {
		return nil, fmt.Errorf("OpenCV could not decode %s data: %w", format, err)
	}
	defer decoded.Close()

	bgra, err := conversion.ToBGRA(decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to normalise image: %w", err)
	}

	source := &models.SourceImage{
		ID:       uuid.NewString(),
		Mat:      bgra,
		Width:    bgra.Cols(),
		Height:   bgra.Rows(),
		Channels: decoded.Channels(),
		Format:   format,
		FileSize: int64(len(data)),
		LoadTime: time.Now(),
	}

	l.logger.Info("Loader", "image loaded successfully", source.Fields())

	return source, nil
}

// determineActualFormat prefers the sniffed format and falls back to the
// file extension.
func determineActualFormat(extension, sniffed string) string {
	if sniffed != "" {
		return sniffed
	}

	if format, ok := formatFromExtension(extension); ok {
		return format
	}
	return "unknown"
}

func formatFromExtension(extension string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "png":
		return "png", true
	case "jpg", "jpeg":
		return "jpeg", true
	case "bmp":
		return "bmp", true
	case "tif", "tiff":
		return "tiff", true
	case "webp":
		return "webp", true
	default:
		return "", false
	}
}

func isSupported(format string) bool {
	for _, f := range SupportedFormats {
		if f == format {
			return true
		}
	}
	return false
}
