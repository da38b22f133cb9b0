package format

import (
	"strconv"
	"strings"
)

// Placeholder is one compiled {name:...} reference. Fields flagged by a Has*
// boolean are only meaningful when it is set.
type Placeholder struct {
	Name string

	MinWidth    int
	HasMinWidth bool
	ZeroPad     bool

	MaxWidth    int
	HasMaxWidth bool

	MinPrefix    Prefix
	HasMinPrefix bool
	HidePrefix   bool
	PrefixSpace  bool

	Unit     Unit
	HasUnit  bool
	HideUnit bool

	// BarMax, when set, renders a bar of MinWidth cells and makes every other
	// option inert.
	BarMax float64
	HasBar bool
}

// option markers in the only order they may appear
const optionOrder = ":^;*#"

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// parsePlaceholder compiles the body of a placeholder (the text between the
// braces). src and pos only feed error messages.
func parsePlaceholder(body, src string, pos int) (*Placeholder, error) {
	fail := func(msg string) error {
		return &SyntaxError{Template: src, Placeholder: body, Pos: pos, Msg: msg}
	}

	i := 0
	for i < len(body) && isNameByte(body[i]) {
		i++
	}
	if i == 0 {
		return nil, fail("missing placeholder name")
	}
	ph := &Placeholder{Name: body[:i]}

	last := -1
	for i < len(body) {
		marker := body[i]
		idx := strings.IndexByte(optionOrder, marker)
		if idx < 0 {
			return nil, fail("unknown option " + strconv.QuoteRune(rune(marker)))
		}
		if idx <= last {
			return nil, fail("conflicting option " + strconv.QuoteRune(rune(marker)) + " (repeated or out of order)")
		}
		last = idx

		// The argument runs until the next option marker.
		j := i + 1
		for j < len(body) && strings.IndexByte(optionOrder, body[j]) < 0 {
			j++
		}
		arg := body[i+1 : j]
		i = j

		var err error
		switch marker {
		case ':':
			err = ph.parseMinWidth(arg)
		case '^':
			err = ph.parseMaxWidth(arg)
		case ';':
			err = ph.parsePrefix(arg)
		case '*':
			err = ph.parseUnit(arg)
		case '#':
			err = ph.parseBar(arg)
		}
		if err != nil {
			return nil, fail(err.Error())
		}
	}
	return ph, nil
}

type optionError string

func (e optionError) Error() string { return string(e) }

func parseWidth(arg, what string) (int, error) {
	if arg == "" {
		return 0, optionError(what + " requires a number")
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		return 0, optionError("invalid " + what + " " + strconv.Quote(arg))
	}
	return n, nil
}

func (ph *Placeholder) parseMinWidth(arg string) error {
	n, err := parseWidth(arg, "min width")
	if err != nil {
		return err
	}
	ph.MinWidth = n
	ph.HasMinWidth = true
	ph.ZeroPad = len(arg) > 1 && arg[0] == '0'
	return nil
}

func (ph *Placeholder) parseMaxWidth(arg string) error {
	n, err := parseWidth(arg, "max width")
	if err != nil {
		return err
	}
	ph.MaxWidth = n
	ph.HasMaxWidth = true
	return nil
}

func (ph *Placeholder) parsePrefix(arg string) error {
	if strings.HasPrefix(arg, " ") {
		ph.PrefixSpace = true
		arg = arg[1:]
	}
	if strings.HasPrefix(arg, "_") {
		ph.HidePrefix = true
		arg = arg[1:]
	}
	if arg == "" {
		return nil
	}
	p, err := ParsePrefix(arg)
	if err != nil {
		return optionError(err.Error())
	}
	ph.MinPrefix = p
	ph.HasMinPrefix = true
	return nil
}

func (ph *Placeholder) parseUnit(arg string) error {
	if strings.HasPrefix(arg, "_") {
		ph.HideUnit = true
		arg = arg[1:]
	}
	if arg == "" {
		if !ph.HideUnit {
			return optionError("unit option requires a unit")
		}
		return nil
	}
	u, err := ParseUnit(arg)
	if err != nil {
		return optionError(err.Error())
	}
	ph.Unit = u
	ph.HasUnit = true
	return nil
}

func (ph *Placeholder) parseBar(arg string) error {
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return optionError("invalid bar max " + strconv.Quote(arg))
	}
	if f <= 0 || f != f {
		return optionError("bar max must be positive")
	}
	ph.BarMax = f
	ph.HasBar = true
	return nil
}
