package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/barpulse/pkg/theme"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// Mode selects the output encoding.
type Mode int

const (
	// ModeI3bar writes the JSON protocol.
	ModeI3bar Mode = iota
	// ModeTerm writes one ANSI-colored plain line per update, for running
	// in a terminal or piping into other bars.
	ModeTerm
)

// Entry is one slot's contribution to a status line.
type Entry struct {
	Name     string
	Instance string
	Widget   widget.Widget
	// Theme overrides the writer theme for this slot when set.
	Theme *theme.Theme
}

// WriterConfig configures a Writer.
type WriterConfig struct {
	Mode  Mode
	Theme *theme.Theme

	// Width reports the available width in cells. Nil, or a result <= 0,
	// means unknown: the bar receives both texts and chooses itself.
	Width func() int

	// ColorDepth is used in ModeTerm: 24 for true color, 8 for 256 colors,
	// 0 for no color.
	ColorDepth int

	// StopSignal and ContSignal are announced in the header.
	StopSignal int
	ContSignal int
}

// Writer serializes status lines. Emit may be called from one goroutine
// at a time; the mutex only guards against misuse.
type Writer struct {
	mu      sync.Mutex
	out     io.Writer
	cfg     WriterConfig
	started bool
}

// NewWriter returns a Writer on out.
func NewWriter(out io.Writer, cfg WriterConfig) *Writer {
	if cfg.Theme == nil {
		t := theme.Get("plain")
		cfg.Theme = &t
	}
	return &Writer{out: out, cfg: cfg}
}

// Start writes the protocol header and opens the status-line array. It is
// a no-op in ModeTerm and on repeated calls.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	w.started = true
	if w.cfg.Mode != ModeI3bar {
		return nil
	}
	header, err := json.Marshal(Header{
		Version:     1,
		ClickEvents: true,
		StopSignal:  w.cfg.StopSignal,
		ContSignal:  w.cfg.ContSignal,
	})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.out, "%s\n[\n", header); err != nil {
		return fmt.Errorf("protocol: write header: %w", err)
	}
	return nil
}

// Width returns the available width, or 0 when unknown.
func (w *Writer) Width() int {
	if w.cfg.Width == nil {
		return 0
	}
	if n := w.cfg.Width(); n > 0 {
		return n
	}
	return 0
}

// Emit writes one complete status line built from entries in order.
func (w *Writer) Emit(entries []Entry) error {
	if err := w.Start(); err != nil {
		return err
	}
	short := UseShort(entries, w.cfg.Theme, w.Width())

	w.mu.Lock()
	defer w.mu.Unlock()

	var line []byte
	switch w.cfg.Mode {
	case ModeTerm:
		line = []byte(TermLine(entries, w.cfg.Theme, short, w.cfg.ColorDepth) + "\n")
	default:
		data, err := json.Marshal(Blocks(entries, w.cfg.Theme, short))
		if err != nil {
			return err
		}
		line = append(data, ",\n"...)
	}
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("protocol: write status line: %w", err)
	}
	return nil
}

func entryTheme(e Entry, fallback *theme.Theme) *theme.Theme {
	if e.Theme != nil {
		return e.Theme
	}
	return fallback
}

// LineWidth is the display width of the line built from entries, counting
// one cell per native separator.
func LineWidth(entries []Entry, th *theme.Theme, short bool) int {
	width, visible := 0, 0
	for _, e := range entries {
		if e.Widget.Empty() {
			continue
		}
		if visible > 0 {
			if th.NativeSeparator() {
				width++
			} else {
				width += ansi.StringWidth(th.Separator)
			}
		}
		visible++
		for _, f := range e.Widget.Fragments {
			text := f.Full()
			if short {
				text = f.Short()
			}
			n := ansi.StringWidth(text)
			if f.MinWidth > n {
				n = f.MinWidth
			}
			width += n
		}
	}
	return width
}

// UseShort reports whether the short texts must replace the full ones to
// fit width. It is false when width is unknown.
func UseShort(entries []Entry, th *theme.Theme, width int) bool {
	return width > 0 && LineWidth(entries, th, false) > width
}

var (
	noSeparator      = false
	zeroSeparatorGap = 0
)

// Blocks converts entries into protocol blocks. Fragments of one widget
// are joined without separators; slots are divided by native separators
// or by extra glyph blocks, depending on the theme.
func Blocks(entries []Entry, th *theme.Theme, short bool) []Block {
	var (
		blocks []Block
		prevBG string
		first  = true
	)
	for _, e := range entries {
		if e.Widget.Empty() {
			continue
		}
		et := entryTheme(e, th)
		firstColors := et.Colors(e.Widget.Fragments[0].State)

		if !first && !th.NativeSeparator() {
			blocks = append(blocks, separatorBlock(th, prevBG, firstColors.BG))
		}
		first = false

		last := len(e.Widget.Fragments) - 1
		for j, f := range e.Widget.Fragments {
			colors := et.Colors(f.State)
			b := Block{
				FullText:   f.Full(),
				Color:      colors.FG,
				Background: colors.BG,
				Border:     colors.Border,
				MinWidth:   f.MinWidth,
				Name:       e.Name,
				Instance:   e.Instance,
				Urgent:     f.State == widget.Critical,
			}
			if f.Align != "" && f.Align != widget.AlignLeft {
				b.Align = string(f.Align)
			}
			switch {
			case short:
				b.FullText = f.Short()
			case f.Short() != b.FullText:
				b.ShortText = f.Short()
			}
			if j != last || !th.NativeSeparator() {
				b.Separator = &noSeparator
				b.SeparatorBlockWidth = &zeroSeparatorGap
			}
			blocks = append(blocks, b)
			prevBG = colors.BG
		}
	}
	return blocks
}

func separatorBlock(th *theme.Theme, prevBG, nextBG string) Block {
	fg, bg := th.SeparatorFG, th.SeparatorBG
	if fg == theme.AutoColor {
		fg = nextBG
	}
	if bg == theme.AutoColor {
		bg = prevBG
	}
	return Block{
		FullText:            th.Separator,
		Color:               fg,
		Background:          bg,
		Separator:           &noSeparator,
		SeparatorBlockWidth: &zeroSeparatorGap,
	}
}

// TermLine renders entries as one plain line with ANSI colors.
func TermLine(entries []Entry, th *theme.Theme, short bool, colorDepth int) string {
	var b strings.Builder
	for _, blk := range Blocks(entries, th, short) {
		text := blk.FullText
		if colorDepth > 0 {
			text = theme.Colorize(text, theme.Colors{FG: blk.Color, BG: blk.Background}, colorDepth)
		}
		b.WriteString(text)
		// nil Separator marks the end of a slot under native separators.
		if blk.Separator == nil {
			b.WriteString(" | ")
		}
	}
	return strings.TrimSuffix(b.String(), " | ")
}
