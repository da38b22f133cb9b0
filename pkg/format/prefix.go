package format

import "fmt"

// Prefix is an SI prefix expressed as a power-of-1000 exponent.
type Prefix int

const (
	PrefixNano  Prefix = -3
	PrefixMicro Prefix = -2
	PrefixMilli Prefix = -1
	PrefixOne   Prefix = 0
	PrefixKilo  Prefix = 1
	PrefixMega  Prefix = 2
	PrefixGiga  Prefix = 3
	PrefixTera  Prefix = 4
)

// Exact factors, indexed by exponent+3. Literal constants avoid the drift of
// math.Pow near the boundaries (0.001 must land on milli, not micro).
var prefixFactors = [...]float64{1e-9, 1e-6, 1e-3, 1, 1e3, 1e6, 1e9, 1e12}

var prefixGlyphs = [...]string{"n", "u", "m", "", "K", "M", "G", "T"}

// ParsePrefix resolves the prefix letter used in a template. "1" selects no
// prefix; "k" is accepted as an alias for "K" and "µ" for "u".
func ParsePrefix(s string) (Prefix, error) {
	switch s {
	case "n":
		return PrefixNano, nil
	case "u", "µ":
		return PrefixMicro, nil
	case "m":
		return PrefixMilli, nil
	case "1":
		return PrefixOne, nil
	case "K", "k":
		return PrefixKilo, nil
	case "M":
		return PrefixMega, nil
	case "G":
		return PrefixGiga, nil
	case "T":
		return PrefixTera, nil
	}
	return PrefixOne, fmt.Errorf("unknown prefix %q", s)
}

// Glyph returns the prefix letter, empty for PrefixOne.
func (p Prefix) Glyph() string {
	return prefixGlyphs[p.clamp()+3]
}

// Factor returns the multiplier the prefix stands for.
func (p Prefix) Factor() float64 {
	return prefixFactors[p.clamp()+3]
}

func (p Prefix) clamp() Prefix {
	if p < PrefixNano {
		return PrefixNano
	}
	if p > PrefixTera {
		return PrefixTera
	}
	return p
}

// choosePrefix picks the largest prefix whose factor does not exceed |v|,
// bounded to [floor, ceiling]. When the floor is above the ceiling the floor
// wins. Zero and non-finite values get PrefixOne within the same bounds.
func choosePrefix(v float64, floor, ceiling Prefix) Prefix {
	if ceiling < floor {
		ceiling = floor
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs == 0 || abs != abs || abs > 1e300 {
		p := PrefixOne
		if p < floor {
			p = floor
		}
		if p > ceiling {
			p = ceiling
		}
		return p
	}
	for p := ceiling; p > floor; p-- {
		if abs >= p.Factor() {
			return p
		}
	}
	return floor
}
