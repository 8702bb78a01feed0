package ui

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"LiveBoard/internal/protocol"
	"LiveBoard/internal/state"
)

// countdownInterval is how often the clear button countdown is redrawn.
const countdownInterval = 250 * time.Millisecond

// Session is what the desktop board drives. Every method may block until
// the session loop has applied the action.
type Session interface {
	StartStroke(p protocol.Point, color string, size float64) error
	ExtendStroke(p protocol.Point) error
	EndStroke() error
	Clear() error
	Chat(text string) error
	View() state.View
}

type Options struct {
	Title string
	Color string
	Size  float64
}

// App is the desktop participant window.
type App struct {
	app     fyne.App
	window  fyne.Window
	session Session
	log     *slog.Logger

	pen     *Pen
	board   *BoardWidget
	toolbar *Toolbar
	chat    *chatPanel
}

func NewApp(session Session, opts Options, logger *slog.Logger) *App {
	if opts.Title == "" {
		opts.Title = "LiveBoard"
	}
	a := &App{
		app:     app.NewWithID("liveboard"),
		session: session,
		log:     logger,
		pen:     NewPen(opts.Color, opts.Size),
		board:   NewBoardWidget(),
	}
	a.window = a.app.NewWindow(opts.Title)
	a.window.Resize(fyne.NewSize(1024, 768))

	a.board.OnStrokeStart = func(p protocol.Point) {
		a.report(session.StartStroke(p, a.pen.Color, a.pen.Size))
	}
	a.board.OnStrokeMove = func(p protocol.Point) { a.report(session.ExtendStroke(p)) }
	a.board.OnStrokeEnd = func() { a.report(session.EndStroke()) }

	a.toolbar = NewToolbar(a.pen, func() { a.report(session.Clear()) }, func() {
		showExportDialog(a.window, session.View, a.report)
	})
	a.chat = newChatPanel(func(text string) { a.report(session.Chat(text)) })

	a.window.SetContent(container.NewBorder(a.toolbar, nil, nil, a.chat, a.board))
	return a
}

// Update shows v. It is safe to call from any goroutine.
func (a *App) Update(v state.View) {
	fyne.Do(func() { a.apply(v, time.Now()) })
}

func (a *App) apply(v state.View, now time.Time) {
	a.board.SetView(v)
	a.toolbar.Update(v, now)
	a.chat.SetEntries(v.Chat)
}

// report surfaces action errors that the controls do not already rule out.
func (a *App) report(err error) {
	if err == nil || errors.Is(err, state.ErrNotJoined) || errors.Is(err, state.ErrClearLocked) {
		return
	}
	a.log.Warn("action failed", "err", err)
	a.toolbar.SetStatus(err.Error())
}

// Run shows the window and blocks until it is closed or stop is closed.
func (a *App) Run(stop <-chan struct{}) {
	closed := make(chan struct{})
	a.window.SetOnClosed(func() { close(closed) })
	go func() {
		t := time.NewTicker(countdownInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				fyne.Do(func() { a.toolbar.Update(a.session.View(), time.Now()) })
			case <-stop:
				fyne.Do(a.app.Quit)
				return
			case <-closed:
				return
			}
		}
	}()
	a.apply(a.session.View(), time.Now())
	a.window.ShowAndRun()
}

type chatPanel struct {
	widget.BaseWidget
	log   *widget.Label
	input *widget.Entry
}

func newChatPanel(send func(text string)) *chatPanel {
	c := &chatPanel{
		log:   widget.NewLabel(""),
		input: widget.NewEntry(),
	}
	c.log.Wrapping = fyne.TextWrapWord
	c.input.SetPlaceHolder("Nachricht")
	c.input.OnSubmitted = func(text string) {
		send(text)
		c.input.SetText("")
	}
	c.ExtendBaseWidget(c)
	return c
}

func (c *chatPanel) SetEntries(entries []string) {
	c.log.SetText(strings.Join(entries, "\n"))
}

func (c *chatPanel) CreateRenderer() fyne.WidgetRenderer {
	scroll := container.NewVScroll(c.log)
	scroll.SetMinSize(fyne.NewSize(240, 0))
	return widget.NewSimpleRenderer(container.NewBorder(nil, c.input, nil, nil, scroll))
}
