package theme

// thRegisterBuiltins registers all built-in themes in the registry.
func thRegisterBuiltins() {
	for _, t := range []Theme{
		thPlainTheme(),
		thDefaultTheme(),
		thGruvboxTheme(),
		thNordTheme(),
		thCatppuccinTheme(),
		thDraculaTheme(),
		thTokyoNightTheme(),
	} {
		thRegister(t)
	}
}

// thPalette is the handful of colors every built-in theme is derived from.
type thPalette struct {
	background string
	foreground string
	accent     string
	ok         string
	warn       string
	crit       string
}

// thFromPalette lays a palette out on severities. Idle and Info share the
// bar background; Good, Warning and Critical invert onto their own color.
func thFromPalette(name string, p thPalette, separator string) Theme {
	t := Theme{
		Name:      name,
		Idle:      Colors{FG: p.foreground, BG: p.background},
		Info:      Colors{FG: p.accent, BG: p.background},
		Good:      Colors{FG: p.background, BG: p.ok},
		Warning:   Colors{FG: p.background, BG: p.warn},
		Critical:  Colors{FG: p.background, BG: p.crit},
		Error:     Colors{FG: p.crit, BG: p.background},
		Separator: separator,
	}
	if separator != NativeSeparator {
		t.SeparatorFG = AutoColor
		t.SeparatorBG = AutoColor
	}
	return t
}

// thPlainTheme leaves every color to the bar and uses native separators.
func thPlainTheme() Theme {
	return Theme{Name: "plain", Separator: NativeSeparator}
}

// thDefaultTheme returns the dark neutral theme with purple accent.
func thDefaultTheme() Theme {
	return thFromPalette("default", thPalette{
		background: "#1e1e1e",
		foreground: "#d4d4d4",
		accent:     "#7C3AED",
		ok:         "#4ec970",
		warn:       "#e5c07b",
		crit:       "#e06c75",
	}, NativeSeparator)
}

// thGruvboxTheme returns the warm retro Gruvbox theme.
func thGruvboxTheme() Theme {
	return thFromPalette("gruvbox", thPalette{
		background: "#282828",
		foreground: "#ebdbb2",
		accent:     "#fe8019",
		ok:         "#b8bb26",
		warn:       "#fabd2f",
		crit:       "#fb4934",
	}, "")
}

// thNordTheme returns the arctic Nord theme.
func thNordTheme() Theme {
	return thFromPalette("nord", thPalette{
		background: "#2e3440",
		foreground: "#d8dee9",
		accent:     "#88c0d0",
		ok:         "#a3be8c",
		warn:       "#ebcb8b",
		crit:       "#bf616a",
	}, NativeSeparator)
}

// thCatppuccinTheme returns the Catppuccin Mocha theme.
func thCatppuccinTheme() Theme {
	return thFromPalette("catppuccin", thPalette{
		background: "#1e1e2e",
		foreground: "#cdd6f4",
		accent:     "#cba6f7",
		ok:         "#a6e3a1",
		warn:       "#f9e2af",
		crit:       "#f38ba8",
	}, "")
}

// thDraculaTheme returns the Dracula theme.
func thDraculaTheme() Theme {
	return thFromPalette("dracula", thPalette{
		background: "#282a36",
		foreground: "#f8f8f2",
		accent:     "#bd93f9",
		ok:         "#50fa7b",
		warn:       "#f1fa8c",
		crit:       "#ff5555",
	}, NativeSeparator)
}

// thTokyoNightTheme returns the Tokyo Night theme.
func thTokyoNightTheme() Theme {
	return thFromPalette("tokyo-night", thPalette{
		background: "#1a1b26",
		foreground: "#c0caf5",
		accent:     "#7aa2f7",
		ok:         "#9ece6a",
		warn:       "#e0af68",
		crit:       "#f7768e",
	}, "|")
}
