package widget

import (
	"fmt"
	"strings"

	"gitlab.com/tinyland/lab/barpulse/pkg/format"
)

// Align is the alignment of text within a fragment's min_width.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// ParseAlign validates an alignment name. Empty means left.
func ParseAlign(s string) (Align, error) {
	switch Align(s) {
	case "":
		return AlignLeft, nil
	case AlignLeft, AlignCenter, AlignRight:
		return Align(s), nil
	}
	return AlignLeft, fmt.Errorf("unknown alignment %q", s)
}

// Fragment is one visually distinct piece of a widget.
type Fragment struct {
	Text      string
	ShortText string
	Icon      string
	State     Severity
	MinWidth  int
	Align     Align
}

// Full returns the fragment text with its icon prepended.
func (f Fragment) Full() string {
	return withIcon(f.Icon, f.Text)
}

// Short returns the narrow variant, falling back to the full text when no
// short template was configured.
func (f Fragment) Short() string {
	if f.ShortText == "" {
		return f.Full()
	}
	return withIcon(f.Icon, f.ShortText)
}

func withIcon(icon, text string) string {
	switch {
	case icon == "":
		return text
	case text == "":
		return icon
	}
	return icon + " " + text
}

// ErrorMessage is the overlay shown while a block is in the Erroring state.
type ErrorMessage struct {
	Short       string
	Full        string
	FullVisible bool
}

// Widget is a block's current renderable output. Widgets are values: the
// scheduler replaces a slot's widget wholesale on every update.
type Widget struct {
	Fragments []Fragment
	State     Severity
	Error     *ErrorMessage
}

// IsError reports whether w carries an error overlay.
func (w Widget) IsError() bool { return w.Error != nil }

// Empty reports whether w has nothing to display.
func (w Widget) Empty() bool { return len(w.Fragments) == 0 }

// New builds a single-fragment widget.
func New(f Fragment) Widget {
	return Widget{Fragments: []Fragment{f}, State: f.State}
}

// NewError builds the widget shown for a failing block. icon is the
// resolved error glyph, possibly empty.
func NewError(icon, short, full string, fullVisible bool) Widget {
	msg := &ErrorMessage{Short: short, Full: full, FullVisible: fullVisible}
	return Widget{
		Fragments: []Fragment{msg.fragment(icon)},
		State:     Error,
		Error:     msg,
	}
}

func (m *ErrorMessage) fragment(icon string) Fragment {
	text := m.Short
	if m.FullVisible {
		text = m.Full
	}
	return Fragment{Text: text, ShortText: m.Short, Icon: icon, State: Error}
}

// ToggleFull flips between the short and full error message. It returns w
// unchanged when w is not an error widget.
func (w Widget) ToggleFull() Widget {
	if w.Error == nil {
		return w
	}
	icon := ""
	if len(w.Fragments) > 0 {
		icon = w.Fragments[0].Icon
	}
	return NewError(icon, w.Error.Short, w.Error.Full, !w.Error.FullVisible)
}

// Text joins every fragment's full (or short) text with single spaces.
func (w Widget) Text(short bool) string {
	parts := make([]string, 0, len(w.Fragments))
	for _, f := range w.Fragments {
		s := f.Full()
		if short {
			s = f.Short()
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// FormatPair is a block's full template and optional narrow-bar fallback.
type FormatPair struct {
	Full  *format.Template
	Short *format.Template
}

// CompileFormats compiles a full/short pair. An empty short source leaves
// Short nil.
func CompileFormats(full, short string) (FormatPair, error) {
	var p FormatPair
	var err error
	if p.Full, err = format.Compile(full); err != nil {
		return FormatPair{}, err
	}
	if short != "" {
		if p.Short, err = format.Compile(short); err != nil {
			return FormatPair{}, err
		}
	}
	return p, nil
}

// Render renders both variants against vals. short is empty when no short
// template is configured.
func (p FormatPair) Render(vals format.Values) (full, short string, err error) {
	if full, err = p.Full.Render(vals); err != nil {
		return "", "", err
	}
	if short, err = p.Short.Render(vals); err != nil {
		return "", "", err
	}
	return full, short, nil
}
