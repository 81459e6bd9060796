package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// wrapToWidth soft-wraps every line of text to width cells. Words longer
// than width are broken.
func wrapToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	wrapper := lipgloss.NewStyle().Width(width)

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			out = append(out, "")
			continue
		}
		wrapped := wrapper.Render(line)
		for _, wrappedLine := range strings.Split(wrapped, "\n") {
			out = append(out, strings.TrimRight(wrappedLine, " "))
		}
	}
	return strings.Join(out, "\n")
}

func wrapWithPrefix(prefix, content string, width int) string {
	if width <= 0 {
		return prefix + content
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")

	prefixWidth := lipgloss.Width(prefix)
	if prefixWidth >= width {
		return wrapToWidth(prefix+content, width)
	}

	contentWidth := width - prefixWidth
	wrappedContent := wrapToWidth(content, contentWidth)
	contentLines := strings.Split(wrappedContent, "\n")
	if len(contentLines) == 0 {
		return prefix
	}

	indent := strings.Repeat(" ", prefixWidth)
	for i := range contentLines {
		if i == 0 {
			contentLines[i] = prefix + contentLines[i]
			continue
		}
		contentLines[i] = indent + contentLines[i]
	}
	return strings.Join(contentLines, "\n")
}

// truncateLeft keeps the tail of s, which is the informative end of a URL path.
func truncateLeft(s string, width int) string {
	if width <= 1 || s == "" {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for i := range runes {
		tail := string(runes[i:])
		if runewidth.StringWidth(tail) <= width-1 {
			return "…" + tail
		}
	}
	return ""
}

func trimLastRune(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	return string(runes[:len(runes)-1])
}
