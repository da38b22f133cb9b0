package format

import (
	"math"
	"strings"
)

// barBlocks holds the eighth-cell glyphs from empty to full.
var barBlocks = [9]rune{' ', '▏', '▎', '▍', '▌', '▋', '▊', '▉', '█'}

// Bar renders ratio (clamped to [0, 1]) as exactly width cells with
// eighth-cell precision. The filled portion never shrinks as ratio grows.
func Bar(ratio float64, width int) string {
	if width <= 0 {
		return ""
	}
	if ratio != ratio || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	totalUnits := width * 8
	filledUnits := int(math.Round(ratio * float64(totalUnits)))
	fullCells := filledUnits / 8
	partial := filledUnits % 8

	var b strings.Builder
	b.WriteString(strings.Repeat(string(barBlocks[8]), fullCells))
	empty := width - fullCells
	if partial > 0 {
		b.WriteRune(barBlocks[partial])
		empty--
	}
	b.WriteString(strings.Repeat(" ", empty))
	return b.String()
}
