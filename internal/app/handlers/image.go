package handlers

import (
	"fmt"

	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

const DefaultExportName = "overlay.png"

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp"}

type ImageHandler struct {
	coordinator *pipeline.Coordinator
	view        View
	logger      logger.Logger
	runOnMain   func(func())
}

func NewImageHandler(coord *pipeline.Coordinator, view View, log logger.Logger) *ImageHandler {
	return &ImageHandler{
		coordinator: coord,
		view:        view,
		logger:      log,
		runOnMain:   fyne.Do,
	}
}

func (h *ImageHandler) HandleLoad() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			h.view.ShowError("File Load Error", err)
			return
		}
		if reader == nil {
			return
		}

		h.view.UpdateStatus("Loading image...")

		go func() {
			defer reader.Close()
			_, loadErr := h.coordinator.OpenReader(reader)
			h.finishOpen(reader.URI().Name(), loadErr)
		}()
	}, h.view.GetWindow())

	fd.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	fd.Show()
}

// OpenPath loads path and paints the result. It blocks until the load is
// done; the display update is posted to the fyne thread.
func (h *ImageHandler) OpenPath(path string) error {
	h.view.UpdateStatus("Loading image...")
	_, err := h.coordinator.OpenPath(path)
	h.finishOpen(path, err)
	return err
}

// finishOpen paints whatever the coordinator holds once the closure runs, so
// a parameter change that lands between the load and the paint is kept.
func (h *ImageHandler) finishOpen(name string, err error) {
	h.runOnMain(func() {
		if err != nil {
			h.view.ShowError("Image Load Error", err)
			h.view.UpdateStatus("Ready")
			return
		}

		h.view.ShowSnapshot(h.coordinator.Current())
		h.view.UpdateStatus("Loaded " + name)
	})
}

func (h *ImageHandler) HandleSave() {
	if h.coordinator.Current().Empty() {
		h.view.ShowError("Save Error", fmt.Errorf("no overlay to save: %w", models.NoSourceLoaded))
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			h.view.ShowError("File Save Error", err)
			return
		}
		if writer == nil {
			return
		}

		h.view.UpdateStatus("Saving image...")

		go func() {
			saveErr := h.save(writer)
			h.runOnMain(func() {
				if saveErr != nil {
					h.view.ShowError("Image Save Error", saveErr)
					return
				}
				h.view.UpdateStatus("Saved " + writer.URI().Name())
			})
		}()
	}, h.view.GetWindow())

	fd.SetFileName(DefaultExportName)
	fd.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	fd.Show()
}

func (h *ImageHandler) save(writer fyne.URIWriteCloser) error {
	exportErr := h.coordinator.ExportURI(writer)
	closeErr := writer.Close()
	if exportErr != nil {
		return exportErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", writer.URI().Name(), closeErr)
	}

	h.logger.Info("ImageHandler", "overlay exported", map[string]interface{}{
		"uri": writer.URI().String(),
	})
	return nil
}
