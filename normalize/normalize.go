// Package normalize cleans extracted text.
//
// [Text] is the final pass applied to every piece of text the pipeline
// returns. It repairs mojibake, normalizes line endings and special spaces,
// collapses horizontal whitespace while keeping line structure, and
// optionally drops noise lines left behind by extraction. [Text] is
// idempotent: Text(Text(s)) == Text(s).
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Options controls optional normalization steps.
type Options struct {
	// DropNoise removes noise lines (see IsNoiseLine).
	DropNoise bool
}

// DefaultOptions has noise removal enabled.
var DefaultOptions = Options{DropNoise: true}

var replacer = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "",
	"\u00a0", " ", // no-break space
	"\u202f", " ", // narrow no-break space
	"\u2007", " ", // figure space
	"\u2212", "-", // minus sign
	"\u200b", "", // zero width space
	"\ufeff", "", // byte order mark
)

// Text normalizes s.
func Text(s string, opts Options) string {
	if s == "" {
		return ""
	}
	// Invisibles are removed first so they cannot split a mojibake pair;
	// the repair itself can yield a no-break space.
	s = replacer.Replace(s)
	s = FixMojibake(s)
	s = norm.NFC.String(s)
	s = replacer.Replace(s)

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseSpaces(line)
		if opts.DropNoise && IsNoiseLine(line) {
			continue
		}
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// collapseSpaces replaces runs of horizontal whitespace with a single space
// and trims trailing whitespace.
func collapseSpaces(line string) string {
	var sb strings.Builder
	sb.Grow(len(line))
	space := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// mojibakeMarker matches a UTF-8 lead byte that was decoded as Windows-1252
// followed by a continuation byte decoded the same way.
var mojibakeMarker = regexp.MustCompile(`[\x{C2}-\x{F4}][\x{80}-\x{BF}\x{152}\x{153}\x{160}\x{161}\x{178}\x{17D}\x{17E}\x{192}\x{2C6}\x{2DC}\x{2013}\x{2014}\x{2018}-\x{201E}\x{2020}-\x{2022}\x{2026}\x{2030}\x{2039}\x{203A}\x{20AC}\x{2122}]`)

// FixMojibake repairs UTF-8 text that was decoded as Windows-1252, such as
// "cafÃ©" for "café". Lines are repaired independently and only when the
// round trip yields shorter valid UTF-8 without adding markers. Repeated
// until stable, which also handles double encoding.
func FixMojibake(s string) string {
	if !mojibakeMarker.MatchString(s) {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		for {
			fixed, ok := fixLine(line)
			if !ok {
				break
			}
			line = fixed
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func fixLine(line string) (string, bool) {
	before := len(mojibakeMarker.FindAllStringIndex(line, -1))
	if before == 0 {
		return line, false
	}
	raw, err := charmap.Windows1252.NewEncoder().String(line)
	if err != nil || !utf8.ValidString(raw) {
		return line, false
	}
	if utf8.RuneCountInString(raw) >= utf8.RuneCountInString(line) ||
		len(mojibakeMarker.FindAllStringIndex(raw, -1)) > before {
		return line, false
	}
	return raw, true
}

// bullets are characters that make up decoration-only lines.
const bullets = "-\u2013\u2014\u2022\u00b7\u2023\u25e6\u25aa\u25ab\u25a0\u25a1\u25cf\u25cb\u25c6\u25c7\u25ba\u25b8*_=~|.:;,#+/\\"

// IsNoiseLine reports whether a line is extraction noise: at most two
// characters that are mostly non-alphanumeric, no letters and mostly
// symbols, or nothing but bullets and punctuation.
func IsNoiseLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	var n, alnum, letters, symbols int
	onlyBullets := true
	for _, r := range line {
		n++
		switch {
		case unicode.IsLetter(r):
			letters++
			alnum++
		case unicode.IsDigit(r):
			alnum++
		case unicode.IsSpace(r):
		default:
			symbols++
		}
		if !unicode.IsSpace(r) && !strings.ContainsRune(bullets, r) {
			onlyBullets = false
		}
	}

	if n <= 2 && float64(n-alnum)/float64(n) > 0.7 {
		return true
	}
	if letters == 0 && float64(symbols)/float64(n) > 0.7 {
		return true
	}
	return onlyBullets
}
