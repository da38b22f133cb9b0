package theme

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/BurntSushi/toml"

	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// thTOMLTheme is the TOML-serializable representation of a Theme.
type thTOMLTheme struct {
	Name        string       `toml:"name"`
	Separator   string       `toml:"separator,omitempty"`
	SeparatorFG string       `toml:"separator_fg,omitempty"`
	SeparatorBG string       `toml:"separator_bg,omitempty"`
	Idle        thTOMLColors `toml:"idle"`
	Info        thTOMLColors `toml:"info"`
	Good        thTOMLColors `toml:"good"`
	Warning     thTOMLColors `toml:"warning"`
	Critical    thTOMLColors `toml:"critical"`
	Error       thTOMLColors `toml:"error"`
}

type thTOMLColors struct {
	FG     string `toml:"fg,omitempty"`
	BG     string `toml:"bg,omitempty"`
	Border string `toml:"border,omitempty"`
}

func (c thTOMLColors) colors() Colors { return Colors(c) }

func thFromColors(c Colors) thTOMLColors { return thTOMLColors(c) }

// i3bar accepts #RRGGBB and #RRGGBBAA.
var thHexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$`)

// LoadFromTOML parses a TOML theme definition from raw bytes.
func LoadFromTOML(data []byte) (Theme, error) {
	var tt thTOMLTheme
	md, err := toml.Decode(string(data), &tt)
	if err != nil {
		return Theme{}, fmt.Errorf("theme: parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Theme{}, fmt.Errorf("theme: unknown key %q", undecoded[0].String())
	}

	t := Theme{
		Name:        tt.Name,
		Idle:        tt.Idle.colors(),
		Info:        tt.Info.colors(),
		Good:        tt.Good.colors(),
		Warning:     tt.Warning.colors(),
		Critical:    tt.Critical.colors(),
		Error:       tt.Error.colors(),
		Separator:   tt.Separator,
		SeparatorFG: tt.SeparatorFG,
		SeparatorBG: tt.SeparatorBG,
	}
	if t.Separator == "" {
		t.Separator = NativeSeparator
	}

	if err := thValidateTheme(t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// SaveToTOML serializes a theme to TOML bytes.
func SaveToTOML(t Theme) ([]byte, error) {
	tt := thTOMLTheme{
		Name:        t.Name,
		Separator:   t.Separator,
		SeparatorFG: t.SeparatorFG,
		SeparatorBG: t.SeparatorBG,
		Idle:        thFromColors(t.Idle),
		Info:        thFromColors(t.Info),
		Good:        thFromColors(t.Good),
		Warning:     thFromColors(t.Warning),
		Critical:    thFromColors(t.Critical),
		Error:       thFromColors(t.Error),
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(tt); err != nil {
		return nil, fmt.Errorf("theme: encode TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// thValidateTheme checks that the theme is named and every color is either
// unset or valid hex.
func thValidateTheme(t Theme) error {
	if t.Name == "" {
		return fmt.Errorf("theme: missing required field %q", "name")
	}
	for _, s := range widget.Severities() {
		c := t.Colors(s)
		for part, value := range map[string]string{"fg": c.FG, "bg": c.BG, "border": c.Border} {
			if err := thValidateColor(s.String()+"."+part, value); err != nil {
				return err
			}
		}
	}
	for field, value := range map[string]string{"separator_fg": t.SeparatorFG, "separator_bg": t.SeparatorBG} {
		if value == AutoColor {
			continue
		}
		if err := thValidateColor(field, value); err != nil {
			return err
		}
	}
	return nil
}

func thValidateColor(field, value string) error {
	if value == "" || thHexColorRegex.MatchString(value) {
		return nil
	}
	if value == AutoColor && (field == "separator_fg" || field == "separator_bg") {
		return nil
	}
	return fmt.Errorf("theme: invalid hex color %q for field %q (expected #RRGGBB)", value, field)
}
