package latexc

import (
	"strings"
)

// stripComments removes everything after an unescaped % on each line.
func stripComments(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		if i > 0 && line[i-1] == '\\' {
			continue
		}
		return line[:i]
	}
	return line
}

// extractSpans returns every balanced begin..end span in the
// comment-stripped source, outermost spans only.
func extractSpans(source string, pair delimiterPair) []string {
	cleaned := stripComments(source)
	var spans []string
	pos := 0
	for {
		start := strings.Index(cleaned[pos:], pair.begin)
		if start < 0 {
			return spans
		}
		start += pos
		depth := 1
		cursor := start + len(pair.begin)
		for depth > 0 {
			nextBegin := strings.Index(cleaned[cursor:], pair.begin)
			nextEnd := strings.Index(cleaned[cursor:], pair.end)
			if nextEnd < 0 {
				// Unbalanced environment, drop the open span.
				return spans
			}
			if nextBegin >= 0 && nextBegin < nextEnd {
				depth++
				cursor += nextBegin + len(pair.begin)
				continue
			}
			depth--
			cursor += nextEnd + len(pair.end)
		}
		spans = append(spans, cleaned[start:cursor])
		pos = cursor
	}
}
