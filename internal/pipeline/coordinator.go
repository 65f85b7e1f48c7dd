package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/conversion"
	"tracing-overlay/internal/opencv/safe"

	"fyne.io/fyne/v2"
)

// Snapshot is what the display surface paints. Image is nil when there is
// nothing to show.
type Snapshot struct {
	Image      *image.NRGBA
	WindowSize int
	Degenerate bool
	Parameters models.Parameters
}

func (s Snapshot) Empty() bool {
	return s.Image == nil
}

// Coordinator owns the source image, the parameter state and the latest
// render. Every mutation re-renders from the source before returning, and
// all methods are serialised so an export never overlaps a render.
type Coordinator struct {
	mu       sync.Mutex
	renderer *Renderer
	loader   *Loader
	saver    *Saver
	memory   MatTracker
	logger   Logger

	source *models.SourceImage
	params models.Parameters
	latest Result
}

// NewCoordinator wires a coordinator. tracker and memory may be nil.
func NewCoordinator(log Logger, tracker TimingTracker, memory MatTracker) *Coordinator {
	if log == nil {
		log = logger.NoOpLogger{}
	}

	return &Coordinator{
		renderer: NewRenderer(log, tracker),
		loader:   NewLoader(log, tracker),
		saver:    NewSaver(log, tracker),
		memory:   memory,
		logger:   log,
		params:   models.DefaultParameters(),
	}
}

func (c *Coordinator) Renderer() *Renderer { return c.renderer }

func (c *Coordinator) Saver() *Saver { return c.saver }

func (c *Coordinator) Loader() *Loader { return c.loader }

// Open replaces the current source with source and renders it with the
// current parameters. The coordinator takes ownership of source.
func (c *Coordinator) Open(source *models.SourceImage) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLatest()
	if c.source != nil {
		c.release(c.source.Mat)
		c.source = nil
	}

	if source.Valid() {
		c.track(source.Mat, "source")
		c.source = source
		c.logger.Info("Coordinator", "source opened", source.Fields())
	}

	return c.renderLocked()
}

// OpenPath loads path and opens it. On error the current source is kept.
func (c *Coordinator) OpenPath(path string) (Snapshot, error) {
	source, err := c.loader.LoadFromPath(path)
	if err != nil {
		return c.Current(), err
	}
	return c.Open(source), nil
}

// OpenReader loads from a fyne storage reader and opens the result.
func (c *Coordinator) OpenReader(reader fyne.URIReadCloser) (Snapshot, error) {
	source, err := c.loader.LoadFromReader(reader)
	if err != nil {
		return c.Current(), err
	}
	return c.Open(source), nil
}

// Dispatch applies one parameter change and re-renders. Clamped or ignored
// values are logged; the render happens regardless.
func (c *Coordinator) Dispatch(msg models.ParameterChanged) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	params, err := c.params.Apply(msg)
	if err != nil {
		fields := map[string]interface{}{"message": msg.String()}
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			fields = verr.Fields()
		}
		c.logger.Warning("Coordinator", err.Error(), fields)
	}
	c.params = params

	c.logger.Debug("Coordinator", "parameter changed", map[string]interface{}{
		"field": msg.Field.String(),
		"value": msg.Value,
	})

	return c.renderLocked()
}

// Refresh re-renders without changing anything.
func (c *Coordinator) Refresh() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked()
}

// Current converts the latest render without re-rendering.
func (c *Coordinator) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) Parameters() models.Parameters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

func (c *Coordinator) HasSource() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source.Valid()
}

// SourceInfo returns a copy of the source metadata without the pixels.
func (c *Coordinator) SourceInfo() (models.SourceImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.source.Valid() {
		return models.SourceImage{}, false
	}
	info := *c.source
	info.Mat = nil
	return info, true
}

// Export writes the latest render to writer.
func (c *Coordinator) Export(writer io.Writer, format string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest.Empty() {
		return fmt.Errorf("nothing to export: %w", models.NoSourceLoaded)
	}
	return c.saver.SaveToWriter(writer, c.latest.Raster, format)
}

// ExportPath writes the latest render to path in the format its extension
// names.
func (c *Coordinator) ExportPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest.Empty() {
		return fmt.Errorf("nothing to export: %w", models.NoSourceLoaded)
	}
	return c.saver.SaveToPath(path, c.latest.Raster)
}

// ExportURI writes the latest render to a fyne storage writer.
func (c *Coordinator) ExportURI(writer fyne.URIWriteCloser) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest.Empty() {
		return fmt.Errorf("nothing to export: %w", models.NoSourceLoaded)
	}
	return c.saver.SaveToURI(writer, c.latest.Raster)
}

// Close releases the source and the latest render.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLatest()
	if c.source != nil {
		c.release(c.source.Mat)
		c.source = nil
	}
}

func (c *Coordinator) renderLocked() Snapshot {
	result := c.renderer.Render(context.Background(), c.source, c.params)

	c.releaseLatest()
	c.latest = result
	if !result.Empty() {
		c.track(result.Raster, "result")
	}

	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snapshot := Snapshot{Parameters: c.params}
	if c.latest.Empty() {
		return snapshot
	}

	img, err := conversion.MatToImage(c.latest.Raster)
	if err != nil {
		c.logger.Error("Coordinator", err, map[string]interface{}{"stage": "snapshot"})
		return snapshot
	}

	snapshot.Image = img
	snapshot.WindowSize = c.latest.WindowSize
	snapshot.Degenerate = c.latest.Degenerate
	return snapshot
}

func (c *Coordinator) releaseLatest() {
	if !c.latest.Empty() {
		c.release(c.latest.Raster)
	}
	c.latest = Result{}
}

func (c *Coordinator) track(mat *safe.Mat, tag string) {
	if c.memory == nil {
		mat.SetTag(tag)
		return
	}
	c.memory.Track(mat, tag)
}

func (c *Coordinator) release(mat *safe.Mat) {
	if c.memory == nil {
		mat.Close()
		return
	}
	c.memory.Release(mat)
}
