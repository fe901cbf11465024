package main

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText greedily wraps text to the given display width, measuring words by
// their terminal cell width so wide runes count as two columns. A width of 0
// or less disables wrapping. Words longer than the width get a line of their
// own and are not broken.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var b strings.Builder
	lineWidth := 0
	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		switch {
		case lineWidth == 0:
		case lineWidth+1+w > width:
			b.WriteByte('\n')
			lineWidth = 0
		default:
			b.WriteByte(' ')
			lineWidth++
		}
		b.WriteString(word)
		lineWidth += w
	}
	return b.String()
}
