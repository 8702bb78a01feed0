package ui

import (
	"fmt"
	"image/color"

	"LiveBoard/internal/export"
)

// palette is the set of swatches offered in the toolbar.
var palette = []string{"#000000", "#ff0000", "#00ff00", "#0000ff", "#ffff00"}

const (
	eraserColor = "#ffffff"
	eraserSize  = 20
)

func swatchColor(hex string) color.Color {
	r, g, b := export.Hex(hex)
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}

func hexColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
