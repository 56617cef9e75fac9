package tables

import (
	"regexp"
	"strings"

	"github.com/tsawler/docparse/model"
)

// Detector is the interface for text table heuristics.
type Detector interface {
	// Name returns the detector name
	Name() string

	// Detect finds tables in lines. Lines already marked in used are
	// skipped; lines that end up in a table are marked.
	Detect(lines []string, used []bool) []*model.Table
}

// Config holds detector configuration
type Config struct {
	// Minimum rows for a valid table
	MinRows int

	// Minimum columns for a valid table
	MinCols int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		MinRows: 2,
		MinCols: 2,
	}
}

// Detect runs the delimited and whitespace heuristics over text with the
// default configuration.
func Detect(text string) []*model.Table {
	return DetectWith(text, DefaultConfig())
}

// DetectWith runs every detector in order, each seeing only the lines not
// claimed by an earlier one.
func DetectWith(text string, cfg Config) []*model.Table {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	used := make([]bool, len(lines))

	var out []*model.Table
	for _, d := range []Detector{NewDelimitedDetector(cfg), NewWhitespaceDetector(cfg)} {
		out = append(out, d.Detect(lines, used)...)
	}
	return out
}

var (
	delimiterRun  = regexp.MustCompile(`[|\t]+`)
	whitespaceRun = regexp.MustCompile(` {2,}`)
	borderLine    = regexp.MustCompile(`^[\s\-+=|.:]*[\-+=|.][\s\-+=|.:]*$`)
)

// isBorderLine reports whether line consists only of rule characters.
func isBorderLine(line string) bool {
	return borderLine.MatchString(line)
}

// block collects the rows of a candidate table.
type block struct {
	rows    [][]string
	lines   []int
	header  bool
	maxCols int
}

func (b *block) add(idx int, cells []string) {
	b.rows = append(b.rows, cells)
	b.lines = append(b.lines, idx)
	if len(cells) > b.maxCols {
		b.maxCols = len(cells)
	}
}

// flush converts the block to a table when it is large enough.
func (b *block) flush(cfg Config, used []bool, out []*model.Table) []*model.Table {
	defer func() { *b = block{} }()
	if len(b.rows) < cfg.MinRows || b.maxCols < cfg.MinCols {
		return out
	}
	for _, i := range b.lines {
		used[i] = true
	}
	return append(out, model.NewTableFromStrings(b.rows, b.header))
}

// DelimitedDetector finds pipe or tab separated tables.
type DelimitedDetector struct {
	config Config
}

// NewDelimitedDetector creates a delimited-text detector.
func NewDelimitedDetector(cfg Config) *DelimitedDetector {
	return &DelimitedDetector{config: cfg}
}

// Name returns the detector name
func (d *DelimitedDetector) Name() string { return "delimited" }

// Detect implements Detector. A border-only line directly after the first
// row (a markdown separator) marks that row as a header.
func (d *DelimitedDetector) Detect(lines []string, used []bool) []*model.Table {
	var out []*model.Table
	var b block
	for i, line := range lines {
		if used[i] {
			out = b.flush(d.config, used, out)
			continue
		}
		if !isDelimitedLine(line) {
			out = b.flush(d.config, used, out)
			continue
		}
		if isBorderLine(line) {
			if len(b.rows) == 1 {
				b.header = true
			}
			if len(b.rows) > 0 {
				used[i] = true
			}
			continue
		}
		b.add(i, splitDelimited(line))
	}
	return b.flush(d.config, used, out)
}

func isDelimitedLine(line string) bool {
	return strings.Count(line, "|") >= 2 || strings.Contains(line, "\t")
}

func splitDelimited(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := delimiterRun.Split(line, -1)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// WhitespaceDetector finds tables whose columns are aligned with runs of
// spaces.
type WhitespaceDetector struct {
	config Config
}

// NewWhitespaceDetector creates a whitespace-aligned text detector.
func NewWhitespaceDetector(cfg Config) *WhitespaceDetector {
	return &WhitespaceDetector{config: cfg}
}

// Name returns the detector name
func (d *WhitespaceDetector) Name() string { return "whitespace" }

// Detect implements Detector.
func (d *WhitespaceDetector) Detect(lines []string, used []bool) []*model.Table {
	var out []*model.Table
	var b block
	for i, line := range lines {
		if used[i] || isBorderLine(line) {
			out = b.flush(d.config, used, out)
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			out = b.flush(d.config, used, out)
			continue
		}
		cells := whitespaceRun.Split(trimmed, -1)
		if len(cells) < 2 {
			out = b.flush(d.config, used, out)
			continue
		}
		b.add(i, cells)
	}
	return b.flush(d.config, used, out)
}
