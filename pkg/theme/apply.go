package theme

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Colorize wraps text in ANSI escape sequences for c. colorDepth selects
// 24-bit ("38;2;r;g;b") or 256-color ("38;5;n") sequences. Empty or
// unparsable colors leave that layer untouched.
func Colorize(text string, c Colors, colorDepth int) string {
	if colorDepth < 24 {
		c = c.To256()
	}
	var codes []string
	if code := sgr(c.FG, termenv.Foreground); code != "" {
		codes = append(codes, code)
	}
	if code := sgr(c.BG, termenv.Background); code != "" {
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return text
	}
	return "\x1b[" + strings.Join(codes, ";") + "m" + text + "\x1b[0m"
}

// To256 maps every color onto the nearest xterm-256 palette entry, as a
// decimal index string. Values that are not hex colors are kept as is.
func (c Colors) To256() Colors {
	return Colors{FG: index256(c.FG), BG: index256(c.BG), Border: index256(c.Border)}
}

func index256(hex string) string {
	if !thHexColorRegex.MatchString(hex) {
		return hex
	}
	// Alpha is ignored.
	if col, ok := termenv.ANSI256.Color(hex[:7]).(termenv.ANSI256Color); ok {
		return strconv.Itoa(int(col))
	}
	return hex
}

// sgr returns the SGR parameters selecting a hex color or a palette index
// on layer (38 foreground, 48 background).
func sgr(value, layer string) string {
	if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 255 {
		return layer + ";5;" + value
	}
	if !thHexColorRegex.MatchString(value) {
		return ""
	}
	col, err := colorful.Hex(value[:7])
	if err != nil {
		return ""
	}
	r, g, b := col.RGB255()
	return fmt.Sprintf("%s;2;%d;%d;%d", layer, r, g, b)
}
