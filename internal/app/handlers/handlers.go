package handlers

import (
	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/pipeline"

	"fyne.io/fyne/v2"
)

// View is the part of the GUI the handlers drive.
type View interface {
	GetWindow() fyne.Window
	ShowSnapshot(snapshot pipeline.Snapshot)
	SyncParameters(p models.Parameters)
	UpdateStatus(status string)
	ShowError(title string, err error)
}

type Handlers struct {
	imageHandler     *ImageHandler
	parameterHandler *ParameterHandler
}

func NewHandlers(coord *pipeline.Coordinator, view View, log logger.Logger) *Handlers {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Handlers{
		imageHandler:     NewImageHandler(coord, view, log),
		parameterHandler: NewParameterHandler(coord, view, log),
	}
}

func (h *Handlers) HandleImageLoad() {
	h.imageHandler.HandleLoad()
}

func (h *Handlers) HandleImageSave() {
	h.imageHandler.HandleSave()
}

func (h *Handlers) HandleParameterChange(msg models.ParameterChanged) {
	h.parameterHandler.HandleParameterChange(msg)
}

// OpenPath loads a file given on the command line.
func (h *Handlers) OpenPath(path string) error {
	return h.imageHandler.OpenPath(path)
}
