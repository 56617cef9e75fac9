package pdfdoc

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// reader wraps a ledongthuc reader. Every method recovers from library
// panics and reports them as empty results.
type reader struct {
	file *os.File
	r    *pdf.Reader
}

func openReader(path string) (rd *reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			rd, err = nil, errPanic(p)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &reader{file: f, r: r}, nil
}

func (rd *reader) Close() error {
	if rd == nil || rd.file == nil {
		return nil
	}
	return rd.file.Close()
}

func numPages(path string) int {
	rd, err := openReader(path)
	if err != nil {
		return 0
	}
	defer rd.Close()
	return rd.NumPage()
}

func (rd *reader) NumPage() (n int) {
	if rd == nil {
		return 0
	}
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return rd.r.NumPage()
}

// PlainText returns the text of the whole document in one pass.
func (rd *reader) PlainText() (s string) {
	if rd == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	r, err := rd.r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	return string(data)
}

// PageText returns the text of the 1-based page n.
func (rd *reader) PageText(n int) (s string) {
	if rd == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	p := rd.r.Page(n)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// Rows returns the positioned text of page n grouped into rows, top to
// bottom.
func (rd *reader) Rows(n int) (rows pdf.Rows) {
	if rd == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			rows = nil
		}
	}()
	p := rd.r.Page(n)
	if p.V.IsNull() {
		return nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return nil
	}
	return rows
}

// Gap thresholds in multiples of the estimated character width.
const (
	wordGap   = 0.2
	columnGap = 2.0
)

// layoutRows renders rows as text lines. Horizontal gaps wider than a few
// characters become runs of three spaces so column structure survives for
// table detection.
func layoutRows(rows pdf.Rows) []string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if row == nil || len(row.Content) == 0 {
			continue
		}
		texts := make([]pdf.Text, len(row.Content))
		copy(texts, row.Content)
		sort.SliceStable(texts, func(i, j int) bool { return texts[i].X < texts[j].X })

		var sb strings.Builder
		var end float64
		for i, t := range texts {
			if t.S == "" {
				continue
			}
			width := charWidth(t)
			if i > 0 {
				gap := t.X - end
				switch {
				case gap > columnGap*width:
					sb.WriteString("   ")
				case gap > wordGap*width && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(t.S, " "):
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(t.S)
			end = max(end, t.X+advance(t))
		}
		if line := strings.TrimRight(sb.String(), " "); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func advance(t pdf.Text) float64 {
	if t.W > 0 {
		return t.W
	}
	return charWidth(t) * float64(len([]rune(t.S)))
}

func charWidth(t pdf.Text) float64 {
	if n := len([]rune(t.S)); t.W > 0 && n > 0 {
		return t.W / float64(n)
	}
	if t.FontSize > 0 {
		return t.FontSize * 0.5
	}
	return 5
}
