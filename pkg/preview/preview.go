// Package preview shows the live status line in a terminal. Blocks are
// clickable: mouse presses on a block are routed through the scheduler as
// if the bar had reported them.
package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"

	"gitlab.com/tinyland/lab/barpulse/pkg/protocol"
	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
)

// Controller is the part of the scheduler the preview drives.
type Controller interface {
	Refresh() error
	Restart() error
	Click(ev protocol.ClickEvent) error
}

// Sink is a scheduler.Emitter feeding status lines to the preview. Only
// the newest line is kept when the UI falls behind.
type Sink struct {
	lines chan []protocol.Entry
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{lines: make(chan []protocol.Entry, 1)}
}

// Emit implements scheduler.Emitter. It never blocks.
func (s *Sink) Emit(entries []protocol.Entry) error {
	line := append([]protocol.Entry(nil), entries...)
	for {
		select {
		case s.lines <- line:
			return nil
		default:
		}
		select {
		case <-s.lines:
		default:
		}
	}
}

type lineMsg []protocol.Entry

// Options configures a Model.
type Options struct {
	Sink       *Sink
	Controller Controller
	Theme      *theme.Theme
	// Profile selects the color output; termenv.Ascii disables colors.
	Profile termenv.Profile
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Model is the Bubble Tea model of the preview.
type Model struct {
	sink  *Sink
	ctl   Controller
	theme *theme.Theme
	depth int

	zones *zone.Manager
	keys  keyMap
	help  help.Model

	entries    []protocol.Entry
	lines      int
	width      int
	forceShort bool
	status     string
	statusErr  bool
}

// New returns a preview model.
func New(opts Options) Model {
	th := opts.Theme
	if th == nil {
		t := theme.Get("default")
		th = &t
	}
	return Model{
		sink:  opts.Sink,
		ctl:   opts.Controller,
		theme: th,
		depth: ColorDepth(opts.Profile),
		zones: zone.New(),
		keys:  defaultKeys(),
		help:  help.New(),
	}
}

// ColorDepth maps a termenv profile onto the depth theme.Colorize takes.
func ColorDepth(p termenv.Profile) int {
	switch p {
	case termenv.TrueColor:
		return 24
	case termenv.ANSI256, termenv.ANSI:
		return 8
	}
	return 0
}

func (m Model) waitLine() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-m.sink.lines
		if !ok {
			return nil
		}
		return lineMsg(line)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitLine()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case lineMsg:
		m.entries = msg
		m.lines++
		return m, m.waitLine()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.zones.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.report(m.ctl.Refresh(), "refresh requested")
		case key.Matches(msg, m.keys.Restart):
			m.report(m.ctl.Restart(), "restart requested")
		case key.Matches(msg, m.keys.Short):
			m.forceShort = !m.forceShort
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if ev, ok := m.clickAt(msg); ok {
			m.report(m.ctl.Click(ev), fmt.Sprintf("%s click on %s/%s", ev.Button, ev.Name, ev.Instance))
		}
	}
	return m, nil
}

func (m *Model) report(err error, ok string) {
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return
	}
	m.status, m.statusErr = ok, false
}

// clickAt maps a mouse press to the block under the pointer.
func (m Model) clickAt(msg tea.MouseMsg) (protocol.ClickEvent, bool) {
	button, ok := mouseButtons[msg.Button]
	if !ok {
		return protocol.ClickEvent{}, false
	}
	for i, e := range m.entries {
		z := m.zones.Get(zoneID(i))
		if !z.InBounds(msg) {
			continue
		}
		relX, relY := z.Pos(msg)
		return protocol.ClickEvent{
			Name:      e.Name,
			Instance:  e.Instance,
			Button:    button,
			X:         float64(msg.X),
			Y:         float64(msg.Y),
			RelativeX: float64(relX),
			RelativeY: float64(relY),
			Width:     float64(z.EndX - z.StartX + 1),
			Height:    float64(z.EndY - z.StartY + 1),
			Modifiers: modifiers(msg),
		}, true
	}
	return protocol.ClickEvent{}, false
}

var mouseButtons = map[tea.MouseButton]protocol.Button{
	tea.MouseButtonLeft:       protocol.ButtonLeft,
	tea.MouseButtonMiddle:     protocol.ButtonMiddle,
	tea.MouseButtonRight:      protocol.ButtonRight,
	tea.MouseButtonWheelUp:    protocol.ButtonWheelUp,
	tea.MouseButtonWheelDown:  protocol.ButtonWheelDown,
	tea.MouseButtonWheelLeft:  protocol.ButtonWheelLeft,
	tea.MouseButtonWheelRight: protocol.ButtonWheelRight,
	tea.MouseButtonBackward:   protocol.ButtonBack,
	tea.MouseButtonForward:    protocol.ButtonForward,
}

func modifiers(msg tea.MouseMsg) []string {
	var mods []string
	if msg.Shift {
		mods = append(mods, "Shift")
	}
	if msg.Ctrl {
		mods = append(mods, "Control")
	}
	if msg.Alt {
		mods = append(mods, "Mod1")
	}
	return mods
}

func zoneID(pos int) string { return fmt.Sprintf("slot-%d", pos) }

// short reports whether short texts are shown.
func (m Model) short() bool {
	return m.forceShort || protocol.UseShort(m.entries, m.theme, m.width)
}

// Line renders the current status line without zone markers.
func (m Model) Line() string {
	return m.line(false)
}

func (m Model) line(mark bool) string {
	short := m.short()
	parts := make([]string, 0, len(m.entries))
	for i, e := range m.entries {
		seg := protocol.TermLine([]protocol.Entry{e}, m.theme, short, m.depth)
		if seg == "" {
			continue
		}
		if mark {
			seg = m.zones.Mark(zoneID(i), seg)
		}
		parts = append(parts, seg)
	}
	out := strings.Join(parts, mutedStyle.Render(" │ "))
	if m.width > 0 && ansi.StringWidth(out) > m.width {
		out = ansi.Truncate(out, m.width, "…")
	}
	return out
}

// View implements tea.Model.
func (m Model) View() string {
	mode := "full"
	if m.short() {
		mode = "short"
	}
	header := titleStyle.Render("barpulse preview") +
		mutedStyle.Render(fmt.Sprintf("  %d blocks · %s · %d lines", len(m.entries), mode, m.lines))

	bar := m.line(true)
	if len(m.entries) == 0 {
		bar = mutedStyle.Render("waiting for the first status line…")
	}

	status := mutedStyle.Render("click a block to send it a click event")
	if m.status != "" {
		status = mutedStyle.Render(m.status)
		if m.statusErr {
			status = errorStyle.Render(m.status)
		}
	}

	view := lipgloss.JoinVertical(lipgloss.Left, header, "", bar, "", status, m.help.View(m.keys))
	return m.zones.Scan(view)
}

// Run shows the preview until the user quits or ctx is done.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	lipgloss.SetColorProfile(profileFor(m.depth))
	opts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func profileFor(depth int) termenv.Profile {
	switch {
	case depth >= 24:
		return termenv.TrueColor
	case depth > 0:
		return termenv.ANSI256
	}
	return termenv.Ascii
}
