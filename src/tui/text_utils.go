package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text. ANSI sequences take no space.
func VisualWidth(s string) int {
	return ansi.StringWidth(s)
}

// Truncate shortens plain text to maxLen cells, ending in "..." when ellipsis is set.
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen-3, "") + "..."
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad truncates plain text and pads it to exactly width cells.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	s = Truncate(s, width, ellipsis)
	return runewidth.FillRight(s, width)
}

// TruncateANSI shortens text that may carry colour codes without cutting a
// sequence in half.
func TruncateANSI(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// Wrap wraps plain text to width, breaking on spaces when possible and inside
// words longer than width.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range words {
		for runewidth.StringWidth(word) > width {
			if lineWidth > 0 {
				flush()
			}
			chunk := runewidth.Truncate(word, width, "")
			if chunk == "" {
				// a single rune wider than width
				chunk = string([]rune(word)[:1])
			}
			lines = append(lines, chunk)
			word = word[len(chunk):]
		}
		if word == "" {
			continue
		}

		w := runewidth.StringWidth(word)
		switch {
		case lineWidth == 0:
			line.WriteString(word)
			lineWidth = w
		case lineWidth+1+w <= width:
			line.WriteString(" ")
			line.WriteString(word)
			lineWidth += 1 + w
		default:
			flush()
			line.WriteString(word)
			lineWidth = w
		}
	}
	if lineWidth > 0 {
		flush()
	}
	return strings.Join(lines, "\n")
}

// WrapLog hard-wraps log output to width, keeping colour codes intact.
func WrapLog(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Hardwrap(text, width, true)
}
