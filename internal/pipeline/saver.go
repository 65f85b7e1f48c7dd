package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/opencv/safe"

	"fyne.io/fyne/v2"
	"gocv.io/x/gocv"
)

const DefaultJPEGQuality = 95

type Saver struct {
	logger        Logger
	timingTracker TimingTracker
	defaultFormat string
	jpegQuality   int
}

func NewSaver(log Logger, tracker TimingTracker) *Saver {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Saver{
		logger:        log,
		timingTracker: tracker,
		defaultFormat: "png",
		jpegQuality:   DefaultJPEGQuality,
	}
}

// SetDefaultFormat selects the format used when a path has no extension.
func (s *Saver) SetDefaultFormat(format string) error {
	if !isSupported(format) {
		return fmt.Errorf("unsupported export format %q", format)
	}
	s.defaultFormat = format
	return nil
}

// SetJPEGQuality sets the JPEG quality, clamped to 1..100.
func (s *Saver) SetJPEGQuality(quality int) {
	s.jpegQuality = min(100, max(1, quality))
}

// FormatFromPath maps the path extension to an export format. A path
// without an extension uses the default format.
func (s *Saver) FormatFromPath(path string) (string, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return s.defaultFormat, nil
	}

	format, ok := formatFromExtension(ext)
	if !ok {
		return "", fmt.Errorf("unsupported export extension %q", ext)
	}
	return format, nil
}

// Encode renders raster in format. JPEG and BMP drop the alpha channel.
func (s *Saver) Encode(raster *safe.Mat, format string) ([]byte, error) {
	if err := safe.ValidateBGRA(raster, "encode"); err != nil {
		return nil, err
	}

	if s.timingTracker != nil {
		ctx := s.timingTracker.StartTiming("encode")
		defer s.timingTracker.EndTiming(ctx)
	}

	src := raster.GetMat()
	switch format {
	case "jpeg", "bmp":
		s.logger.Debug("Saver", "alpha channel discarded", map[string]interface{}{
			"format": format,
		})
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(src, &bgr, gocv.ColorBGRAToBGR)
		src = bgr
	}

	var (
		buf *gocv.NativeByteBuffer
		err error
	)
	switch format {
	case "png":
		buf, err = gocv.IMEncode(gocv.PNGFileExt, src)
	case "jpeg":
		buf, err = gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{int(gocv.IMWriteJpegQuality), s.jpegQuality})
	case "bmp":
		buf, err = gocv.IMEncode(gocv.FileExt(".bmp"), src)
	case "tiff":
		buf, err = gocv.IMEncode(gocv.FileExt(".tiff"), src)
	case "webp":
		buf, err = gocv.IMEncodeWithParams(gocv.FileExt(".webp"), src, []int{int(gocv.IMWriteWebpQuality), 101})
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	defer buf.Close()

	// GetBytes aliases native memory.
	native := buf.GetBytes()
	data := make([]byte, len(native))
	copy(data, native)
	return data, nil
}

func (s *Saver) SaveToWriter(writer io.Writer, raster *safe.Mat, format string) error {
	data, err := s.Encode(raster, format)
	if err != nil {
		s.logger.Error("Saver", err, map[string]interface{}{"format": format})
		return err
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}

	s.logger.Info("Saver", "image saved", map[string]interface{}{
		"format": format,
		"width":  raster.Cols(),
		"height": raster.Rows(),
		"bytes":  len(data),
	})
	return nil
}

// SaveToURI writes to a fyne storage writer, picking the format from its
// extension.
func (s *Saver) SaveToURI(writer fyne.URIWriteCloser, raster *safe.Mat) error {
	format, err := s.FormatFromPath(writer.URI().Path())
	if err != nil {
		return err
	}
	return s.SaveToWriter(writer, raster, format)
}

func (s *Saver) SaveToPath(path string, raster *safe.Mat) error {
	format, err := s.FormatFromPath(path)
	if err != nil {
		return err
	}

	data, err := s.Encode(raster, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	s.logger.Info("Saver", "image saved", map[string]interface{}{
		"path":   path,
		"format": format,
		"bytes":  len(data),
	})
	return nil
}
