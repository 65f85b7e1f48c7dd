package pipeline

import (
	"io"

	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/safe"

	"fyne.io/fyne/v2"
)

// ImageLoader handles loading images from various sources
type ImageLoader interface {
	LoadFromReader(reader fyne.URIReadCloser) (*models.SourceImage, error)
	LoadFromPath(path string) (*models.SourceImage, error)
	LoadFromBytes(data []byte, extension string) (*models.SourceImage, error)
}

// ImageSaver handles saving rendered rasters to various formats
type ImageSaver interface {
	SaveToWriter(writer io.Writer, raster *safe.Mat, format string) error
	SaveToURI(writer fyne.URIWriteCloser, raster *safe.Mat) error
	SaveToPath(path string, raster *safe.Mat) error
	FormatFromPath(path string) (string, error)
}

// MatTracker accounts for long lived mats.
type MatTracker interface {
	Track(mat *safe.Mat, tag string)
	Release(mat *safe.Mat)
	Cleanup()
}

var (
	_ ImageLoader = (*Loader)(nil)
	_ ImageSaver  = (*Saver)(nil)
)
