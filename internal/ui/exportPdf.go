package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"LiveBoard/internal/export"
	"LiveBoard/internal/state"
)

// showExportDialog asks for a file and writes the board as shown by view
// at the moment the file is chosen.
func showExportDialog(w fyne.Window, view func() state.View, done func(error)) {
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			done(err)
			return
		}
		err = export.Write(writer, view())
		if cerr := writer.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", writer.URI().Name(), cerr)
		}
		done(err)
	}, w)
	save.SetFileName("liveboard.pdf")
	save.Show()
}
