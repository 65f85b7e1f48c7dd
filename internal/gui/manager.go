package gui

import (
	"tracing-overlay/internal/gui/components"
	"tracing-overlay/internal/logger"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
)

const (
	OverlayTitle      = "Tracing Overlay"
	ControlsTitle     = "Overlay Controls"
	ControlsWidth     = 380
	ControlsHeight    = 560
	DefaultMinOverlay = pipeline.MinWindowSize
)

type Options struct {
	MinWindowSize int
	OpenControls  bool
}

// Manager owns the two windows: the overlay (toolbar plus raster) and the
// control window.
type Manager struct {
	app        fyne.App
	overlay    fyne.Window
	controls   fyne.Window
	logger     logger.Logger
	options    Options
	hidden     bool
	isShutdown bool

	display *components.OverlayDisplay
	toolbar *components.Toolbar
	panel   *components.ControlPanel

	closeHandler func()
}

func NewManager(app fyne.App, log logger.Logger, opts Options) (*Manager, error) {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	if opts.MinWindowSize <= 0 {
		opts.MinWindowSize = DefaultMinOverlay
	}

	overlay := app.NewWindow(OverlayTitle)
	overlay.SetPadded(false)
	overlay.SetMaster()

	controls := app.NewWindow(ControlsTitle)
	controls.Resize(fyne.NewSize(ControlsWidth, ControlsHeight))

	manager := &Manager{
		app:      app,
		overlay:  overlay,
		controls: controls,
		logger:   log,
		options:  opts,
		display:  components.NewOverlayDisplay(overlay, opts.MinWindowSize),
		toolbar:  components.NewToolbar(),
		panel:    components.NewControlPanel(),
	}

	overlay.SetContent(container.NewBorder(
		manager.toolbar.GetContainer(), nil, nil, nil,
		manager.display.GetContainer(),
	))
	overlay.Resize(overlay.Content().MinSize())

	controls.SetContent(manager.panel.GetContainer())
	// Closing the control window only hides it.
	controls.SetCloseIntercept(controls.Hide)

	manager.toolbar.SetControlsHandler(manager.ShowControls)
	manager.toolbar.SetMinimizeHandler(manager.Minimize)
	manager.toolbar.SetCloseHandler(func() {
		if manager.closeHandler != nil {
			manager.closeHandler()
			return
		}
		overlay.Close()
	})
	manager.panel.SetInvalidInputHandler(func(field models.Field, text string) {
		manager.logger.Warning("GUIManager", "ignored invalid number", map[string]interface{}{
			"field": field.String(),
			"text":  text,
		})
		manager.panel.Status().SetStatus("Invalid " + field.String() + ": " + text)
	})

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"min_window_size": opts.MinWindowSize,
		"open_controls":   opts.OpenControls,
	})

	return manager, nil
}

func (m *Manager) GetWindow() fyne.Window {
	return m.overlay
}

func (m *Manager) ControlsWindow() fyne.Window {
	return m.controls
}

func (m *Manager) SetOpenHandler(handler func()) {
	m.toolbar.SetOpenHandler(handler)
}

func (m *Manager) SetSaveHandler(handler func()) {
	m.toolbar.SetSaveHandler(handler)
}

func (m *Manager) SetCloseHandler(handler func()) {
	m.closeHandler = handler
}

func (m *Manager) SetParameterChangeHandler(handler func(models.ParameterChanged)) {
	m.panel.SetParameterChangeHandler(func(msg models.ParameterChanged) {
		m.logger.Debug("GUIManager", "parameter change", map[string]interface{}{
			"field": msg.Field.String(),
			"value": msg.Value,
		})
		handler(msg)
	})
}

// Show displays the overlay and, when configured, the control window.
func (m *Manager) Show() {
	m.overlay.Show()
	if m.options.OpenControls {
		m.ShowControls()
	}
}

func (m *Manager) ShowControls() {
	m.controls.Show()
	m.controls.RequestFocus()
}

// Minimize hides the overlay and brings up the controls. The next render
// shows it again.
func (m *Manager) Minimize() {
	m.hidden = true
	m.overlay.Hide()
	m.ShowControls()
	m.panel.Status().SetStatus("Overlay hidden")
}

func (m *Manager) RestoreOverlay() {
	m.hidden = false
	m.overlay.Show()
}

// ShowSnapshot paints a render. Must run on the fyne thread.
func (m *Manager) ShowSnapshot(snapshot pipeline.Snapshot) {
	if m.hidden {
		m.RestoreOverlay()
	}

	if snapshot.Empty() {
		m.display.Clear()
		m.toolbar.SetCanSave(false)
		m.panel.Status().SetRender(0, false)
		return
	}

	m.display.SetRaster(snapshot.Image, snapshot.WindowSize)
	m.toolbar.SetCanSave(true)
	m.panel.Status().SetRender(snapshot.WindowSize, snapshot.Degenerate)

	m.logger.Debug("GUIManager", "overlay updated", map[string]interface{}{
		"display": m.display.Describe(),
	})
}

// SyncParameters moves the controls to p without emitting changes.
func (m *Manager) SyncParameters(p models.Parameters) {
	m.panel.SetParameters(p)
}

func (m *Manager) UpdateStatus(status string) {
	fyne.Do(func() {
		m.panel.Status().SetStatus(status)
	})
}

func (m *Manager) ShowError(title string, err error) {
	m.logger.Error("GUIManager", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		m.panel.Status().SetStatus(title)
		dialog.ShowError(err, m.overlay)
	})
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}

	m.isShutdown = true
	fyne.Do(m.controls.Close)
	m.logger.Info("GUIManager", "shutdown initiated", nil)
}
