package pdfdoc

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// openContext reads and validates path with pdfcpu in relaxed mode.
func openContext(path string) (ctx *pdfmodel.Context, err error) {
	defer func() {
		if p := recover(); p != nil {
			ctx, err = nil, errPanic(p)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return api.ReadValidateAndOptimize(f, conf)
}

// contentStreamPages decodes the text showing operators of every page's
// content stream. It reads raw string operands, so it can recover text
// the layout extractor misses, at the cost of glyph mapping for
// embedded fonts.
func contentStreamPages(ctx *pdfmodel.Context) []string {
	if ctx == nil {
		return nil
	}
	pages := make([]string, ctx.PageCount)
	for i := range pages {
		pages[i] = pageStreamText(ctx, i+1)
	}
	return pages
}

func pageStreamText(ctx *pdfmodel.Context, pageNr int) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return streamText(data)
}

// TJ adjustments, in thousandths of an em, treated as a space.
const wordKern = 150

// streamText interprets the text operators of a content stream: Tj, TJ,
// ' and " show strings; Td, TD, T* and ET end lines.
func streamText(data []byte) string {
	var (
		out      strings.Builder
		line     []byte
		operands [][]byte
		inArray  bool
		array    [][]byte
	)
	flush := func() {
		if s := strings.TrimSpace(decodeWinAnsi(line)); s != "" {
			out.WriteString(s)
			out.WriteByte('\n')
		}
		line = line[:0]
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case c == '(':
			s, next := readLiteral(data, i)
			if inArray {
				array = append(array, s)
			} else {
				operands = append(operands, s)
			}
			i = next
		case c == '<' && i+1 < len(data) && data[i+1] != '<':
			s, next := readHex(data, i)
			if inArray {
				array = append(array, s)
			} else {
				operands = append(operands, s)
			}
			i = next
		case c == '[':
			inArray, array = true, nil
			i++
		case c == ']':
			inArray = false
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case isDelimiter(c) || isSpace(c):
			i++
		default:
			start := i
			for i < len(data) && !isSpace(data[i]) && !isDelimiter(data[i]) {
				i++
			}
			tok := string(data[start:i])
			if inArray {
				// Large negative kerning inside TJ is a word break.
				if v, err := strconv.ParseFloat(tok, 64); err == nil && v <= -wordKern {
					array = append(array, []byte(" "))
				}
				continue
			}
			switch tok {
			case "Tj":
				for _, s := range operands {
					line = append(line, s...)
				}
			case "TJ":
				for _, s := range array {
					line = append(line, s...)
				}
				array = nil
			case "'", "\"":
				flush()
				if len(operands) > 0 {
					line = append(line, operands[len(operands)-1]...)
				}
			case "Td", "TD", "T*", "ET":
				flush()
			}
			if !isNumber(tok) {
				operands = operands[:0]
			}
		}
	}
	flush()
	return strings.TrimRight(out.String(), "\n")
}

func readLiteral(data []byte, i int) ([]byte, int) {
	var s []byte
	depth := 0
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			switch e := data[i]; e {
			case 'n':
				s = append(s, '\n')
			case 'r':
				s = append(s, '\r')
			case 't':
				s = append(s, '\t')
			case 'b', 'f':
			case '\r', '\n':
				// Line continuation.
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; k++ {
						i++
						v = v*8 + int(data[i]-'0')
					}
					s = append(s, byte(v))
				} else {
					s = append(s, e)
				}
			}
		case c == '(':
			if depth > 0 {
				s = append(s, c)
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return s, i + 1
			}
			s = append(s, c)
		default:
			s = append(s, c)
		}
		i++
	}
	return s, i
}

func readHex(data []byte, i int) ([]byte, int) {
	var s []byte
	var hi byte
	half := false
	i++
	for i < len(data) && data[i] != '>' {
		v, ok := hexVal(data[i])
		i++
		if !ok {
			continue
		}
		if half {
			s = append(s, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		s = append(s, hi<<4)
	}
	return s, i + 1
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelimiter(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func isNumber(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < '0' || c > '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

// decodeWinAnsi maps single-byte string operands to text. Control bytes
// other than tab are dropped.
func decodeWinAnsi(b []byte) string {
	clean := make([]byte, 0, len(b))
	for _, c := range b {
		if c >= 0x20 || c == '\t' {
			clean = append(clean, c)
		}
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(clean)
	if err != nil {
		return string(clean)
	}
	return string(s)
}
