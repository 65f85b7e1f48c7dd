package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type StatusBar struct {
	container   *fyne.Container
	statusLabel *widget.Label
	renderLabel *widget.Label
}

func NewStatusBar() *StatusBar {
	statusLabel := widget.NewLabel("Ready")
	renderLabel := widget.NewLabel("Window: --")

	mainContainer := container.NewBorder(
		nil, nil,
		statusLabel,
		renderLabel,
	)

	return &StatusBar{
		container:   mainContainer,
		statusLabel: statusLabel,
		renderLabel: renderLabel,
	}
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) Status() string {
	return sb.statusLabel.Text
}

// SetRender shows the window size of the latest render; zero means no render.
func (sb *StatusBar) SetRender(windowSize int, degenerate bool) {
	switch {
	case windowSize == 0:
		sb.renderLabel.SetText("Window: --")
	case degenerate:
		sb.renderLabel.SetText(fmt.Sprintf("Window: %d px (empty crop)", windowSize))
	default:
		sb.renderLabel.SetText(fmt.Sprintf("Window: %d px", windowSize))
	}
}

func (sb *StatusBar) RenderText() string {
	return sb.renderLabel.Text
}
