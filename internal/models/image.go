package models

import (
	"fmt"
	"time"

	"tracing-overlay/internal/opencv/safe"
)

// SourceImage is a decoded source raster and its metadata. The Mat is
// always 8-bit BGRA and is never modified after load.
type SourceImage struct {
	ID       string
	Mat      *safe.Mat
	Width    int
	Height   int
	Channels int // channel count before BGRA normalisation
	Format   string
	Path     string
	FileSize int64
	LoadTime time.Time
}

func (s *SourceImage) Valid() bool {
	return s != nil && s.Mat != nil && s.Mat.IsValid()
}

// Close releases the pixel data. Safe to call more than once.
func (s *SourceImage) Close() {
	if s == nil || s.Mat == nil {
		return
	}
	s.Mat.Close()
}

func (s *SourceImage) String() string {
	if s == nil {
		return "<no source>"
	}
	return fmt.Sprintf("%s (%dx%d %s)", s.Path, s.Width, s.Height, s.Format)
}

// Fields renders the image metadata as structured log fields.
func (s *SourceImage) Fields() map[string]interface{} {
	return map[string]interface{}{
		"id":        s.ID,
		"path":      s.Path,
		"format":    s.Format,
		"width":     s.Width,
		"height":    s.Height,
		"channels":  s.Channels,
		"file_size": s.FileSize,
	}
}
