package ui

import (
	"image/color"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveBoard/internal/protocol"
)

func TestNormalize(t *testing.T) {
	size := fyne.NewSize(200, 100)
	assert.Equal(t, protocol.Point{X: 0.25, Y: 0.5}, normalize(fyne.NewPos(50, 50), size))
	assert.Equal(t, protocol.Point{X: 1.5, Y: -0.25}, normalize(fyne.NewPos(300, -25), size))
	assert.Equal(t, protocol.Point{}, normalize(fyne.NewPos(10, 10), fyne.Size{}))
	assert.Equal(t, fyne.NewPos(50, 50), denormalize(protocol.Point{X: 0.25, Y: 0.5}, size))
}

func TestColors(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0xff, A: 0xff}, swatchColor("#ff0000"))
	assert.Equal(t, color.NRGBA{A: 0xff}, swatchColor("not a colour"))
	for _, hex := range palette {
		assert.Equal(t, hex, hexColor(swatchColor(hex)))
	}
}

func TestBoardWidgetReportsNormalizedStroke(t *testing.T) {
	test.NewApp()
	b := NewBoardWidget()
	b.Resize(fyne.NewSize(200, 100))

	var got []protocol.Point
	ends := 0
	b.OnStrokeStart = func(p protocol.Point) { got = append(got, p) }
	b.OnStrokeMove = func(p protocol.Point) { got = append(got, p) }
	b.OnStrokeEnd = func() { ends++ }

	// Moves without a pressed button are not strokes.
	b.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}})
	require.Empty(t, got)

	b.MouseDown(&desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(50, 25)}, Button: desktop.MouseButtonPrimary})
	b.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(100, 50)}})
	b.MouseUp(&desktop.MouseEvent{Button: desktop.MouseButtonPrimary})
	b.DragEnd()

	assert.Equal(t, []protocol.Point{{X: 0.25, Y: 0.25}, {X: 0.5, Y: 0.5}}, got)
	assert.Equal(t, 1, ends)

	b.MouseDown(&desktop.MouseEvent{Button: desktop.MouseButtonSecondary})
	assert.Len(t, got, 2)
}
