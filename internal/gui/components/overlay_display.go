package components

import (
	"fmt"
	"image"

	"tracing-overlay/internal/gui/layout"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// OverlayDisplay paints the latest composited raster centred in a square
// area sized to the render's window size, and fits its window to it.
type OverlayDisplay struct {
	container   *fyne.Container
	image       *canvas.Image
	placeholder *widget.Label
	square      *layout.SquareLayout
	window      fyne.Window
	minSide     int
}

func NewOverlayDisplay(window fyne.Window, minSide int) *OverlayDisplay {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillOriginal
	img.ScaleMode = canvas.ImageScalePixels
	img.Hide()

	placeholder := widget.NewLabel("Open an image to trace")
	placeholder.Alignment = fyne.TextAlignCenter

	square := layout.NewSquareLayout(float32(minSide))

	return &OverlayDisplay{
		container:   container.New(square, img, placeholder),
		image:       img,
		placeholder: placeholder,
		square:      square,
		window:      window,
		minSide:     minSide,
	}
}

func (od *OverlayDisplay) GetContainer() *fyne.Container {
	return od.container
}

// SetRaster shows img in a windowSize square. A nil img clears the display.
func (od *OverlayDisplay) SetRaster(img image.Image, windowSize int) {
	if img == nil {
		od.Clear()
		return
	}

	bounds := img.Bounds()
	od.image.Image = img
	od.image.SetMinSize(fyne.NewSize(float32(bounds.Dx()), float32(bounds.Dy())))
	od.image.Show()
	od.placeholder.Hide()

	od.setSide(max(windowSize, od.minSide))
	od.image.Refresh()
}

func (od *OverlayDisplay) Clear() {
	od.image.Image = nil
	od.image.Hide()
	od.placeholder.Show()
	od.setSide(od.minSide)
}

// Side is the current square side in canvas units.
func (od *OverlayDisplay) Side() float32 {
	return od.square.Side()
}

func (od *OverlayDisplay) Describe() string {
	if od.image.Image == nil {
		return "empty"
	}
	b := od.image.Image.Bounds()
	return fmt.Sprintf("%dx%d in %.0f", b.Dx(), b.Dy(), od.square.Side())
}

func (od *OverlayDisplay) setSide(side int) {
	od.square.SetSide(float32(side))
	od.container.Refresh()

	if od.window == nil {
		return
	}
	if content := od.window.Content(); content != nil {
		od.window.Resize(content.MinSize())
		return
	}
	od.window.Resize(fyne.NewSize(float32(side), float32(side)))
}
