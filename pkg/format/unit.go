package format

import (
	"fmt"
	"strings"
)

// Unit is the physical unit attached to a numeric value.
type Unit int

const (
	UnitNone Unit = iota
	UnitBytes
	UnitBits
	UnitBytesPerSecond
	UnitBitsPerSecond
	UnitPercent
	UnitDegrees
	UnitSeconds
	UnitWatts
	UnitHertz
)

var unitGlyphs = map[Unit]string{
	UnitNone:           "",
	UnitBytes:          "B",
	UnitBits:           "b",
	UnitBytesPerSecond: "B/s",
	UnitBitsPerSecond:  "b/s",
	UnitPercent:        "%",
	UnitDegrees:        "°",
	UnitSeconds:        "s",
	UnitWatts:          "W",
	UnitHertz:          "Hz",
}

var unitNames = map[string]Unit{
	"":        UnitNone,
	"none":    UnitNone,
	"B":       UnitBytes,
	"bytes":   UnitBytes,
	"b":       UnitBits,
	"bits":    UnitBits,
	"B/s":     UnitBytesPerSecond,
	"Bps":     UnitBytesPerSecond,
	"b/s":     UnitBitsPerSecond,
	"bps":     UnitBitsPerSecond,
	"%":       UnitPercent,
	"percent": UnitPercent,
	"°":       UnitDegrees,
	"deg":     UnitDegrees,
	"degrees": UnitDegrees,
	"s":       UnitSeconds,
	"seconds": UnitSeconds,
	"W":       UnitWatts,
	"watts":   UnitWatts,
	"Hz":      UnitHertz,
	"hertz":   UnitHertz,
}

// ParseUnit resolves a unit glyph or name as written in a template. Glyphs
// are case-sensitive ("B" is bytes, "b" is bits); long names are not.
func ParseUnit(s string) (Unit, error) {
	if u, ok := unitNames[s]; ok {
		return u, nil
	}
	if u, ok := unitNames[strings.ToLower(s)]; ok && len(s) > 3 {
		return u, nil
	}
	return UnitNone, fmt.Errorf("unknown unit %q", s)
}

// Glyph returns the suffix displayed after a number in this unit.
func (u Unit) Glyph() string {
	return unitGlyphs[u]
}

// String returns the glyph, or "none" for UnitNone.
func (u Unit) String() string {
	if u == UnitNone {
		return "none"
	}
	return u.Glyph()
}

// MinPrefix is the default engineering-notation floor. Byte and bit
// quantities never go below the unit itself.
func (u Unit) MinPrefix() Prefix {
	switch u {
	case UnitBytes, UnitBits, UnitBytesPerSecond, UnitBitsPerSecond:
		return PrefixOne
	default:
		return PrefixNano
	}
}

// MaxPrefix is the default engineering-notation ceiling. Quantities whose
// magnitude is naturally human scale (percentages, degrees, durations and
// plain numbers) are never scaled up unless a template asks for a prefix.
func (u Unit) MaxPrefix() Prefix {
	switch u {
	case UnitNone, UnitPercent, UnitDegrees, UnitSeconds:
		return PrefixOne
	default:
		return PrefixTera
	}
}

// Convert rescales v from unit u into unit to.
func (u Unit) Convert(v float64, to Unit) (float64, error) {
	if u == to {
		return v, nil
	}
	switch {
	case u == UnitBytes && to == UnitBits, u == UnitBytesPerSecond && to == UnitBitsPerSecond:
		return v * 8, nil
	case u == UnitBits && to == UnitBytes, u == UnitBitsPerSecond && to == UnitBytesPerSecond:
		return v / 8, nil
	}
	return 0, fmt.Errorf("cannot convert %s to %s", u, to)
}
