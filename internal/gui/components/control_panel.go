package components

import (
	"fmt"
	"strconv"
	"strings"

	"tracing-overlay/internal/gui/layout"
	"tracing-overlay/internal/models"
	"tracing-overlay/internal/processing/edges"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type sliderControl struct {
	field  models.Field
	title  string
	slider *widget.Slider
	label  *widget.Label
	format func(float64) string
}

// ControlPanel is the controller surface. Every widget change becomes one
// models.ParameterChanged passed to the parameter handler.
type ControlPanel struct {
	container *fyne.Container

	scaleEntry   *widget.Entry
	angleEntry   *widget.Entry
	mirrorCheck  *widget.Check
	outlineCheck *widget.Check
	colorSelect  *widget.Select
	resetButton  *widget.Button
	sliders      []*sliderControl
	status       *StatusBar

	// syncing suppresses callbacks while widgets are set programmatically.
	syncing bool

	onParameterChange ParameterHandler
	onInvalidInput    InvalidInputHandler
}

func NewControlPanel() *ControlPanel {
	panel := &ControlPanel{}
	panel.setupControls()
	panel.SetParameters(models.DefaultParameters())
	return panel
}

func (cp *ControlPanel) setupControls() {
	cp.scaleEntry = widget.NewEntry()
	cp.scaleEntry.SetPlaceHolder("1.0")
	cp.scaleEntry.OnChanged = func(text string) { cp.onNumberEntry(models.FieldScale, text) }

	cp.angleEntry = widget.NewEntry()
	cp.angleEntry.SetPlaceHolder("0")
	cp.angleEntry.OnChanged = func(text string) { cp.onNumberEntry(models.FieldAngle, text) }

	cp.mirrorCheck = widget.NewCheck("Mirror", func(checked bool) {
		cp.emit(models.FieldMirror, checked)
	})

	cp.outlineCheck = widget.NewCheck("Outline only", func(checked bool) {
		cp.emit(models.FieldOutline, checked)
	})

	cp.colorSelect = widget.NewSelect(edges.PaletteNames(), func(name string) {
		cp.emit(models.FieldOutlineColor, name)
	})

	percent := func(v float64) string { return fmt.Sprintf("%.0f%%", v) }
	integer := func(v float64) string { return strconv.Itoa(int(v)) }

	cp.sliders = []*sliderControl{
		cp.newSlider(models.FieldCropLeft, "Crop left", 0, 100, percent),
		cp.newSlider(models.FieldCropRight, "Crop width", 0, 100, percent),
		cp.newSlider(models.FieldCropTop, "Crop top", 0, 100, percent),
		cp.newSlider(models.FieldCropBottom, "Crop height", 0, 100, percent),
		cp.newSlider(models.FieldTransparencyPercent, "Opacity", 0, 100, percent),
		cp.newSlider(models.FieldThreshold1, "Threshold 1", 0, ThresholdSliderMax, integer),
		cp.newSlider(models.FieldThreshold2, "Threshold 2", 0, ThresholdSliderMax, integer),
	}

	cp.resetButton = widget.NewButton("Reset", func() {
		cp.emit(models.FieldReset, nil)
	})

	cp.status = NewStatusBar()

	rows := []fyne.CanvasObject{
		widget.NewLabel("Scale"), cp.scaleEntry,
		widget.NewLabel("Angle"), cp.angleEntry,
		widget.NewLabel(""), cp.mirrorCheck,
	}
	for _, s := range cp.sliders {
		rows = append(rows, s.label, s.slider)
	}
	rows = append(rows,
		widget.NewLabel(""), cp.outlineCheck,
		widget.NewLabel("Outline colour"), cp.colorSelect,
	)

	form := container.New(layout.NewLabelColumnLayout(LabelColumnWidth, ControlPadding), rows...)

	cp.container = container.NewBorder(
		nil,
		container.NewVBox(widget.NewSeparator(), container.NewHBox(cp.resetButton), cp.status.GetContainer()),
		nil, nil,
		container.NewVScroll(form),
	)
}

func (cp *ControlPanel) newSlider(field models.Field, title string, lo, hi float64, format func(float64) string) *sliderControl {
	s := &sliderControl{
		field:  field,
		title:  title,
		slider: widget.NewSlider(lo, hi),
		label:  widget.NewLabel(title),
		format: format,
	}
	s.slider.Step = 1
	s.slider.OnChanged = func(value float64) {
		s.label.SetText(s.title + ": " + s.format(value))
		cp.emit(s.field, value)
	}
	return s
}

func (cp *ControlPanel) GetContainer() *fyne.Container {
	return cp.container
}

func (cp *ControlPanel) Status() *StatusBar {
	return cp.status
}

func (cp *ControlPanel) SetParameterChangeHandler(handler ParameterHandler) {
	cp.onParameterChange = handler
}

func (cp *ControlPanel) SetInvalidInputHandler(handler InvalidInputHandler) {
	cp.onInvalidInput = handler
}

// SetParameters moves every widget to p without emitting messages.
func (cp *ControlPanel) SetParameters(p models.Parameters) {
	cp.syncing = true
	defer func() { cp.syncing = false }()

	cp.scaleEntry.SetText(strconv.FormatFloat(p.Scale, 'g', -1, 64))
	cp.angleEntry.SetText(strconv.FormatFloat(p.AngleDegrees, 'g', -1, 64))
	cp.mirrorCheck.SetChecked(p.Mirror)
	cp.outlineCheck.SetChecked(p.Outline)
	cp.colorSelect.SetSelected(p.OutlineColor.String())

	values := map[models.Field]float64{
		models.FieldCropLeft:            p.CropLeft,
		models.FieldCropRight:           p.CropRight,
		models.FieldCropTop:             p.CropTop,
		models.FieldCropBottom:          p.CropBottom,
		models.FieldTransparencyPercent: models.PercentFromOpacity(p.Transparency),
		models.FieldThreshold1:          float64(p.Threshold1),
		models.FieldThreshold2:          float64(p.Threshold2),
	}
	for _, s := range cp.sliders {
		v := values[s.field]
		s.slider.SetValue(v)
		s.label.SetText(s.title + ": " + s.format(v))
	}
}

func (cp *ControlPanel) onNumberEntry(field models.Field, text string) {
	if cp.syncing {
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		if cp.onInvalidInput != nil {
			cp.onInvalidInput(field, text)
		}
		return
	}
	cp.emit(field, value)
}

func (cp *ControlPanel) emit(field models.Field, value interface{}) {
	if cp.syncing || cp.onParameterChange == nil {
		return
	}
	cp.onParameterChange(models.ParameterChanged{Field: field, Value: value})
}
