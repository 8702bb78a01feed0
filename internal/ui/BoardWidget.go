package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// BoardWidget paints a published View and turns pointer input into
// stroke callbacks with positions in the unit square.
type BoardWidget struct {
	widget.BaseWidget

	mu      sync.RWMutex
	view    state.View
	drawing bool

	OnStrokeStart func(p protocol.Point)
	OnStrokeMove  func(p protocol.Point)
	OnStrokeEnd   func()
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)

func NewBoardWidget() *BoardWidget {
	b := &BoardWidget{}
	b.ExtendBaseWidget(b)
	return b
}

// SetView replaces what the board shows. Call it on the fyne goroutine.
func (b *BoardWidget) SetView(v state.View) {
	b.mu.Lock()
	b.view = v
	b.mu.Unlock()
	b.Refresh()
}

func (b *BoardWidget) strokes() []state.Stroke {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view.Strokes
}

// normalize maps a widget position into the unit square. Positions
// outside the board map outside [0,1] so a captured drag keeps its shape.
func normalize(pos fyne.Position, size fyne.Size) protocol.Point {
	if size.Width <= 0 || size.Height <= 0 {
		return protocol.Point{}
	}
	return protocol.Point{
		X: float64(pos.X / size.Width),
		Y: float64(pos.Y / size.Height),
	}
}

func denormalize(p protocol.Point, size fyne.Size) fyne.Position {
	return fyne.NewPos(float32(p.X)*size.Width, float32(p.Y)*size.Height)
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	b.mu.Lock()
	if b.drawing {
		b.mu.Unlock()
		return
	}
	b.drawing = true
	b.mu.Unlock()
	if b.OnStrokeStart != nil {
		b.OnStrokeStart(normalize(e.Position, b.Size()))
	}
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	b.mu.RLock()
	drawing := b.drawing
	b.mu.RUnlock()
	if drawing && b.OnStrokeMove != nil {
		b.OnStrokeMove(normalize(e.Position, b.Size()))
	}
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button == desktop.MouseButtonPrimary {
		b.endStroke()
	}
}

func (b *BoardWidget) DragEnd() { b.endStroke() }

func (b *BoardWidget) endStroke() {
	b.mu.Lock()
	if !b.drawing {
		b.mu.Unlock()
		return
	}
	b.drawing = false
	b.mu.Unlock()
	if b.OnStrokeEnd != nil {
		b.OnStrokeEnd()
	}
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.background = canvas.NewRectangle(color.White)
	return r
}

type boardWidgetRenderer struct {
	board      *BoardWidget
	background *canvas.Rectangle
}

// Objects draws every stroke segment by segment, later strokes on top.
func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	objects := []fyne.CanvasObject{r.background}
	size := r.board.Size()
	for _, s := range r.board.strokes() {
		if !s.Visible() {
			continue
		}
		c := swatchColor(s.Color)
		for i := 1; i < len(s.Points); i++ {
			segment := canvas.NewLine(c)
			segment.StrokeWidth = float32(s.Size)
			segment.Position1 = denormalize(s.Points[i-1], size)
			segment.Position2 = denormalize(s.Points[i], size)
			objects = append(objects, segment)
		}
	}
	return objects
}

func (r *boardWidgetRenderer) Refresh() {
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (b *BoardWidget) MouseOut()                      {}
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}
func (r *boardWidgetRenderer) Destroy()               {}
