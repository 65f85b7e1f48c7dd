package layout

import (
	"fyne.io/fyne/v2"
)

// SquareLayout centres every object inside a square of a settable side. The
// overlay uses it so the rotated raster always has room for its diagonal.
type SquareLayout struct {
	side float32
}

func NewSquareLayout(side float32) *SquareLayout {
	return &SquareLayout{side: side}
}

func (sl *SquareLayout) SetSide(side float32) {
	sl.side = side
}

func (sl *SquareLayout) Side() float32 {
	return sl.side
}

func (sl *SquareLayout) Layout(objects []fyne.CanvasObject, containerSize fyne.Size) {
	for _, obj := range objects {
		size := obj.MinSize()
		size.Width = min(size.Width, containerSize.Width)
		size.Height = min(size.Height, containerSize.Height)

		obj.Resize(size)
		obj.Move(fyne.NewPos(
			(containerSize.Width-size.Width)/2,
			(containerSize.Height-size.Height)/2,
		))
	}
}

func (sl *SquareLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	return fyne.NewSize(sl.side, sl.side)
}

// LabelColumnLayout lays out (label, control) pairs as rows with a fixed
// label column so control widths do not shift when label text changes.
type LabelColumnLayout struct {
	labelWidth float32
	padding    float32
}

func NewLabelColumnLayout(labelWidth, padding float32) *LabelColumnLayout {
	return &LabelColumnLayout{
		labelWidth: labelWidth,
		padding:    padding,
	}
}

func (lcl *LabelColumnLayout) Layout(objects []fyne.CanvasObject, containerSize fyne.Size) {
	y := float32(0)
	for i := 0; i+1 < len(objects); i += 2 {
		label, control := objects[i], objects[i+1]
		height := rowHeight(label, control)

		label.Resize(fyne.NewSize(lcl.labelWidth, height))
		label.Move(fyne.NewPos(0, y))

		controlWidth := max(containerSize.Width-lcl.labelWidth-lcl.padding, control.MinSize().Width)
		control.Resize(fyne.NewSize(controlWidth, height))
		control.Move(fyne.NewPos(lcl.labelWidth+lcl.padding, y))

		y += height + lcl.padding
	}
}

func (lcl *LabelColumnLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	width := float32(0)
	height := float32(0)
	rows := 0

	for i := 0; i+1 < len(objects); i += 2 {
		width = max(width, objects[i+1].MinSize().Width)
		height += rowHeight(objects[i], objects[i+1])
		rows++
	}
	if rows > 1 {
		height += float32(rows-1) * lcl.padding
	}

	return fyne.NewSize(lcl.labelWidth+lcl.padding+width, height)
}

func rowHeight(label, control fyne.CanvasObject) float32 {
	return max(label.MinSize().Height, control.MinSize().Height)
}
