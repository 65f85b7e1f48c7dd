package handlers

import (
	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/pipeline"
)

// ParameterHandler applies control changes. It runs on the fyne thread, so
// the render and the repaint happen before the next event is handled.
type ParameterHandler struct {
	coordinator *pipeline.Coordinator
	view        View
	logger      logger.Logger
}

func NewParameterHandler(coord *pipeline.Coordinator, view View, log logger.Logger) *ParameterHandler {
	return &ParameterHandler{
		coordinator: coord,
		view:        view,
		logger:      log,
	}
}

func (h *ParameterHandler) HandleParameterChange(msg models.ParameterChanged) {
	snapshot := h.coordinator.Dispatch(msg)

	if msg.Field == models.FieldReset {
		h.view.SyncParameters(snapshot.Parameters)
		h.logger.Info("ParameterHandler", "parameters reset", nil)
	}

	h.view.ShowSnapshot(snapshot)
}
