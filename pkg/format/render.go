package format

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/ncruces/go-strftime"

	"gitlab.com/tinyland/lab/barpulse/pkg/suggest"
)

// Default minimum widths when a placeholder does not specify one.
const (
	defaultTextWidth    = 0
	defaultIntegerWidth = 2
	defaultFloatWidth   = 3
	defaultBarWidth     = 5
	defaultTimeLayout   = "%H:%M"
)

var errBarNotNumeric = errors.New("bar requires a numeric value")

func unknownPlaceholder(name string, vals Values) error {
	return &UnknownPlaceholderError{Name: name, Suggestion: suggest.Closest(name, vals.Keys())}
}

// Format renders a single value according to ph's options.
func (ph *Placeholder) Format(v Value) (string, error) {
	if ph.HasBar {
		return ph.formatBar(v)
	}
	switch v.kind {
	case KindText:
		return ph.formatText(v.text), nil
	case KindDatetime:
		layout := v.layout
		if layout == "" {
			layout = defaultTimeLayout
		}
		return ph.formatText(strftime.Format(layout, v.time)), nil
	case KindFlag:
		return ph.formatText(strconv.FormatBool(v.flag)), nil
	case KindInteger:
		if ph.HasMinPrefix || (ph.HasUnit && ph.Unit != v.unit) {
			return ph.formatFloat(float64(v.integer), v.unit)
		}
		return ph.formatInteger(v.integer, v.unit), nil
	case KindFloat:
		return ph.formatFloat(v.float, v.unit)
	}
	return "", nil
}

// formatText left-aligns s to the minimum width and truncates it to the
// maximum width, measuring in terminal cells.
func (ph *Placeholder) formatText(s string) string {
	if ph.HasMaxWidth && ansi.StringWidth(s) > ph.MaxWidth {
		s = ansi.Truncate(s, ph.MaxWidth, "")
	}
	width := defaultTextWidth
	if ph.HasMinWidth {
		width = ph.MinWidth
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func (ph *Placeholder) formatInteger(n int64, unit Unit) string {
	width := defaultIntegerWidth
	if ph.HasMinWidth {
		width = ph.MinWidth
	}
	digits := strconv.FormatInt(n, 10)
	s := padNumber(digits, width, ph.ZeroPad)
	return s + ph.suffix("", unit)
}

func (ph *Placeholder) formatFloat(f float64, unit Unit) (string, error) {
	if ph.HasUnit {
		converted, err := unit.Convert(f, ph.Unit)
		if err != nil {
			return "", err
		}
		f, unit = converted, ph.Unit
	}

	floor, ceiling := unit.MinPrefix(), unit.MaxPrefix()
	if ph.HasMinPrefix {
		floor, ceiling = ph.MinPrefix, PrefixTera
	}
	prefix := choosePrefix(f, floor, ceiling)

	width := defaultFloatWidth
	if ph.HasMinWidth {
		width = ph.MinWidth
	}
	s := engineering(f/prefix.Factor(), width, ph.ZeroPad)
	// Rounding may carry the mantissa to 1000; step up one prefix if allowed.
	if prefix < ceiling && roundsToThousand(s) {
		prefix++
		s = engineering(f/prefix.Factor(), width, ph.ZeroPad)
	}
	return s + ph.suffix(prefix.Glyph(), unit), nil
}

func roundsToThousand(s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && math.Abs(v) >= 1000
}

// suffix builds the prefix+unit tail, honouring the hide and space options.
func (ph *Placeholder) suffix(prefix string, unit Unit) string {
	var tail string
	if !ph.HidePrefix {
		tail += prefix
	}
	if !ph.HideUnit {
		tail += unit.Glyph()
	}
	if tail != "" && ph.PrefixSpace {
		tail = " " + tail
	}
	return tail
}

// engineering formats an already scaled number so that it fills width
// characters: the integer part is always kept, one spare character becomes
// padding, two or more become a decimal point plus fractional digits. The
// layout is decided on the rounded number, so 9.96 at width 3 is " 10".
func engineering(v float64, width int, zeroPad bool) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	digits := intDigits(strconv.FormatFloat(math.Trunc(v), 'f', 0, 64))
	for {
		rest := width - digits
		decimals := 0
		if rest > 1 {
			decimals = rest - 1
		}
		s := strconv.FormatFloat(v, 'f', decimals, 64)
		if d := intDigits(s); d > digits {
			digits = d
			continue
		}
		if rest == 1 {
			pad := " "
			if zeroPad {
				pad = "0"
			}
			s = pad + s
		}
		return s
	}
}

// intDigits counts the characters before the decimal point, sign included.
func intDigits(s string) int {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return i
	}
	return len(s)
}

// padNumber right-aligns digits to width. Zero padding goes between the
// sign and the digits.
func padNumber(digits string, width int, zeroPad bool) string {
	pad := width - len(digits)
	if pad <= 0 {
		return digits
	}
	if !zeroPad {
		return strings.Repeat(" ", pad) + digits
	}
	if strings.HasPrefix(digits, "-") {
		return "-" + strings.Repeat("0", pad) + digits[1:]
	}
	return strings.Repeat("0", pad) + digits
}

func (ph *Placeholder) formatBar(v Value) (string, error) {
	f, ok := v.Number()
	if !ok {
		return "", errBarNotNumeric
	}
	width := defaultBarWidth
	if ph.HasMinWidth {
		width = ph.MinWidth
	}
	return Bar(f/ph.BarMax, width), nil
}
