package components

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Toolbar is the strip above the overlay: Open, Save, Controls, Minimize
// and Close.
type Toolbar struct {
	container      *fyne.Container
	OpenButton     *widget.Button
	SaveButton     *widget.Button
	ControlsButton *widget.Button
	MinimizeButton *widget.Button
	CloseButton    *widget.Button

	openHandler     func()
	saveHandler     func()
	controlsHandler func()
	minimizeHandler func()
	closeHandler    func()
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.setupToolbar()
	return toolbar
}

func (t *Toolbar) setupToolbar() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 230})

	t.OpenButton = widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), t.onOpen)
	t.OpenButton.Importance = widget.HighImportance
	t.SaveButton = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), t.onSave)
	t.SaveButton.Disable()
	t.ControlsButton = widget.NewButtonWithIcon("Controls", theme.SettingsIcon(), t.onControls)

	t.MinimizeButton = widget.NewButtonWithIcon("", theme.VisibilityOffIcon(), t.onMinimize)
	t.MinimizeButton.Importance = widget.LowImportance
	t.CloseButton = widget.NewButtonWithIcon("", theme.CancelIcon(), t.onClose)
	t.CloseButton.Importance = widget.LowImportance

	left := container.NewHBox(t.OpenButton, t.SaveButton, t.ControlsButton)
	right := container.NewHBox(t.MinimizeButton, t.CloseButton)

	t.container = container.NewStack(
		background,
		container.NewBorder(nil, nil, left, right),
	)
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

// SetCanSave enables Save once there is a render to export.
func (t *Toolbar) SetCanSave(enabled bool) {
	if enabled {
		t.SaveButton.Enable()
	} else {
		t.SaveButton.Disable()
	}
}

func (t *Toolbar) SetOpenHandler(handler func()) {
	t.openHandler = handler
}

func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

func (t *Toolbar) SetControlsHandler(handler func()) {
	t.controlsHandler = handler
}

func (t *Toolbar) SetMinimizeHandler(handler func()) {
	t.minimizeHandler = handler
}

func (t *Toolbar) SetCloseHandler(handler func()) {
	t.closeHandler = handler
}

func (t *Toolbar) onOpen() {
	if t.openHandler != nil {
		t.openHandler()
	}
}

func (t *Toolbar) onSave() {
	if t.saveHandler != nil {
		t.saveHandler()
	}
}

func (t *Toolbar) onControls() {
	if t.controlsHandler != nil {
		t.controlsHandler()
	}
}

func (t *Toolbar) onMinimize() {
	if t.minimizeHandler != nil {
		t.minimizeHandler()
	}
}

func (t *Toolbar) onClose() {
	if t.closeHandler != nil {
		t.closeHandler()
	}
}
