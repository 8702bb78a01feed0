package export

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"LiveBoard/internal/state"
)

const (
	margin = 10.0
	// referenceWidth is the board width in pixels that stroke sizes are
	// chosen against.
	referenceWidth = 1024.0
)

// WriteFile renders v to a PDF at path.
func WriteFile(path string, v state.View) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write renders the visible strokes of v onto one landscape A4 page, in
// render order, with the unit square stretched over the page inside the
// margins.
func Write(w io.Writer, v state.View) error {
	if err := document(v, time.Now(), true).Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func document(v state.View, at time.Time, compress bool) *gofpdf.Fpdf {
	p := gofpdf.New("L", "mm", "A4", "")
	p.SetCompression(compress)
	p.SetTitle("LiveBoard", true)
	p.SetCreationDate(at)
	p.AddPage()

	pageW, pageH := p.GetPageSize()
	areaW, areaH := pageW-2*margin, pageH-2*margin
	scale := areaW / referenceWidth

	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")
	for _, s := range v.Strokes {
		if !s.Visible() {
			continue
		}
		r, g, b := Hex(s.Color)
		p.SetDrawColor(r, g, b)
		p.SetLineWidth(s.Size * scale)
		for i, pt := range s.Points {
			x, y := margin+pt.X*areaW, margin+pt.Y*areaH
			if i == 0 {
				p.MoveTo(x, y)
			} else {
				p.LineTo(x, y)
			}
		}
		p.DrawPath("D")
	}

	p.SetFont("Helvetica", "", 8)
	p.SetTextColor(128, 128, 128)
	p.Text(margin, pageH-margin/2, fmt.Sprintf("%s  %d strokes  %s", v.Indicator(), len(v.Strokes), at.Format(time.DateTime)))
	return p
}

// Hex parses #rgb and #rrggbb colours. Anything else renders black.
func Hex(s string) (r, g, b int) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff)
}
