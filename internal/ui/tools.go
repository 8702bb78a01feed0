package ui

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/state"
)

const clearText = "Leeren"

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func(color.Color)
}

func newColorSwatch(c color.Color, tapped func(color.Color)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(32, 32))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

// Pen holds the colour and size new strokes are drawn with.
type Pen struct {
	Color string
	Size  float64
	// last is restored when switching back from the eraser.
	last string
}

func NewPen(color string, size float64) *Pen {
	if color == "" {
		color = state.DefaultColor
	}
	if size <= 0 {
		size = state.DefaultSize
	}
	return &Pen{Color: color, Size: size, last: color}
}

// --- The Main Toolbar ---
type Toolbar struct {
	widget.BaseWidget

	pen       *Pen
	clear     *widget.Button
	indicator *widget.Label
	status    *widget.Label
	slider    *widget.Slider
	onExport  func()
}

// NewToolbar builds the toolbar. onClear and onExport run on the fyne
// goroutine when their buttons are tapped.
func NewToolbar(pen *Pen, onClear, onExport func()) *Toolbar {
	t := &Toolbar{
		pen:       pen,
		indicator: widget.NewLabel(state.View{}.Indicator()),
		status:    widget.NewLabel(""),
	}
	t.clear = widget.NewButtonWithIcon(clearText, theme.ContentClearIcon(), onClear)
	t.clear.Disable()

	t.slider = widget.NewSlider(1.0, 50.0)
	t.slider.SetValue(pen.Size)
	t.slider.OnChanged = func(val float64) { pen.Size = val }

	t.ExtendBaseWidget(t)
	t.onExport = onExport
	return t
}

func (t *Toolbar) CreateRenderer() fyne.WidgetRenderer {
	tools := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() {
			t.pen.Color = t.pen.last
			if t.pen.Size >= eraserSize {
				t.slider.SetValue(state.DefaultSize)
			}
		}), // Pen
		widget.NewToolbarAction(theme.DeleteIcon(), func() {
			t.pen.Color = eraserColor
			t.slider.SetValue(eraserSize)
		}), // Eraser
		widget.NewToolbarAction(theme.DocumentSaveIcon(), t.onExport), // Export
	)

	onColorTapped := func(c color.Color) {
		t.pen.Color = hexColor(c)
		t.pen.last = t.pen.Color
	}
	colorBox := container.NewHBox()
	for _, hex := range palette {
		colorBox.Add(newColorSwatch(swatchColor(hex), onColorTapped))
	}
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), t.slider)

	return widget.NewSimpleRenderer(container.NewHBox(
		widget.NewLabel("Tool:"),
		tools,
		widget.NewSeparator(),
		widget.NewLabel("Color:"),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		widget.NewSeparator(),
		t.clear,
		layout.NewSpacer(),
		t.status,
		t.indicator,
	))
}

// Update shows v as of now: the "#self/count" badge, connection status and
// the clear button with its lock countdown.
func (t *Toolbar) Update(v state.View, now time.Time) {
	t.indicator.SetText(v.Indicator())
	t.status.SetText(statusText(v))
	t.clear.SetText(clearButtonText(v, now))
	if v.CanClear && v.LockRemaining(now) == 0 {
		t.clear.Enable()
	} else {
		t.clear.Disable()
	}
}

func (t *Toolbar) SetStatus(text string) { t.status.SetText(text) }

func statusText(v state.View) string {
	switch {
	case !v.Connected:
		return "Getrennt"
	case !v.Joined:
		return "Verbinde..."
	default:
		return ""
	}
}

func clearButtonText(v state.View, now time.Time) string {
	left := v.LockRemaining(now)
	if left <= 0 {
		return clearText
	}
	return fmt.Sprintf("%s (%ds)", clearText, int(math.Ceil(left.Seconds())))
}
