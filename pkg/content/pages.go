package content

import (
	"fmt"
	"strings"
)

// DefaultPageWindow is the number of characters taken after a page
// marker when only a page position is known for a speech.
const DefaultPageWindow = 4000

// PageWindow returns a bounded text window starting at the printed page
// marker for pageLabel inside fullText. Protocol text renders page
// breaks as "S. <n>" headers, with the bare number as a secondary form.
// The window is a best-effort approximation, not an exact speech span.
func PageWindow(fullText, pageLabel string, window int) (string, error) {
	if pageLabel == "" {
		return "", fmt.Errorf("page label is empty")
	}
	if window <= 0 {
		window = DefaultPageWindow
	}

	idx := strings.Index(fullText, "S. "+pageLabel)
	if idx < 0 {
		idx = indexOfBareLabel(fullText, pageLabel)
	}
	if idx < 0 {
		return "", fmt.Errorf("page marker %q not found", pageLabel)
	}

	start := idx + len(pageLabel)
	for start < len(fullText) && fullText[start] != '\n' && start-idx < 40 {
		start++
	}
	end := start + window
	if end > len(fullText) {
		end = len(fullText)
	}
	text := strings.TrimSpace(fullText[start:end])
	if text == "" {
		return "", fmt.Errorf("empty window at page %q", pageLabel)
	}
	return text, nil
}

// indexOfBareLabel finds pageLabel standing alone on a line, the way
// plain-text conversions render running page numbers.
func indexOfBareLabel(fullText, pageLabel string) int {
	offset := 0
	rest := fullText
	for {
		i := strings.Index(rest, pageLabel)
		if i < 0 {
			return -1
		}
		lineOK := (i == 0 || rest[i-1] == '\n')
		after := i + len(pageLabel)
		if lineOK && (after >= len(rest) || rest[after] == '\n' || rest[after] == ' ') {
			return offset + i
		}
		offset += i + len(pageLabel)
		rest = rest[i+len(pageLabel):]
	}
}
