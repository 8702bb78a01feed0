package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

func TestHex(t *testing.T) {
	cases := []struct {
		in      string
		r, g, b int
	}{
		{"#000", 0, 0, 0},
		{"#ff0000", 255, 0, 0},
		{"#0f8", 0, 255, 136},
		{"#12AbEf", 0x12, 0xab, 0xef},
		{"red", 0, 0, 0},
		{"#12345", 0, 0, 0},
		{"", 0, 0, 0},
	}
	for _, tc := range cases {
		r, g, b := Hex(tc.in)
		assert.Equal(t, []int{tc.r, tc.g, tc.b}, []int{r, g, b}, tc.in)
	}
}

func view() state.View {
	return state.View{
		Self:  1,
		Count: 2,
		Strokes: []state.Stroke{
			{Owner: 1, Points: []protocol.Point{{X: 0.1, Y: 0.1}, {X: 0.9, Y: 0.9}}, Color: "#ff0000", Size: 4},
			{Owner: 2, Points: []protocol.Point{{X: 0.5, Y: 0.5}}, Color: "#00ff00", Size: 3},
		},
	}
}

func TestDocumentDrawsVisibleStrokes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, document(view(), time.Unix(0, 0), false).Output(&buf))
	out := buf.String()

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, out, "1.000 0.000 0.000 RG")
	// The single-point stroke is not drawn.
	assert.NotContains(t, out, "0.000 1.000 0.000 RG")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.pdf")
	require.NoError(t, WriteFile(path, view()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
