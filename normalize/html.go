package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// ShortLineMax is the longest line, in runes, considered by DedupShortLines.
const ShortLineMax = 64

// HTMLText normalizes text extracted from HTML and removes short lines that
// repeat, which are almost always navigation and footer boilerplate.
func HTMLText(s string, opts Options) string {
	return Text(DedupShortLines(Text(s, opts)), opts)
}

// DedupShortLines keeps only the first occurrence of every non-blank line of
// at most ShortLineMax runes that occurs more than once.
func DedupShortLines(s string) string {
	lines := strings.Split(s, "\n")
	counts := make(map[string]int)
	for _, line := range lines {
		if key, ok := shortKey(line); ok {
			counts[key]++
		}
	}

	seen := make(map[string]bool)
	out := lines[:0]
	for _, line := range lines {
		if key, ok := shortKey(line); ok && counts[key] > 1 {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func shortKey(line string) (string, bool) {
	key := strings.TrimSpace(line)
	if key == "" || utf8.RuneCountInString(key) > ShortLineMax {
		return "", false
	}
	return key, true
}

// Decode converts raw text bytes to a UTF-8 string. The encoding is taken
// from a byte order mark, the charset of contentType, an HTML meta
// declaration or, failing those, guessed (UTF-8 when valid, else
// Windows-1252).
func Decode(data []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(data, contentType)
	if name == "utf-8" {
		return strings.TrimPrefix(string(data), "\ufeff")
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return strings.TrimPrefix(string(out), "\ufeff")
}
