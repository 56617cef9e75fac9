// Package csvdoc reads delimited text files as a single table.
package csvdoc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tsawler/docparse/format"
	"github.com/tsawler/docparse/model"
	"github.com/tsawler/docparse/normalize"
	"github.com/tsawler/docparse/tables"
)

// sniffSize is how much of the file is used to pick the delimiter.
const sniffSize = 64 << 10

// Read parses a delimited file. The delimiter is sniffed from the start of
// the file, falling back to a comma. The first record is the header row.
// Records with no non-blank field are skipped.
func Read(path string) (*model.Table, rune, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading file: %w", err)
	}
	return Parse(data)
}

// Parse is Read for data already in memory.
func Parse(data []byte) (*model.Table, rune, error) {
	text := normalize.Decode(data, "text/csv")

	head := []byte(text)
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	delim, ok := format.SniffDelimiter(head)
	if !ok {
		delim = ','
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(rows) == 0 {
				return nil, delim, fmt.Errorf("parsing delimited text: %w", err)
			}
			break
		}
		if !blank(rec) {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
			rows = append(rows, rec)
		}
	}
	return model.NewTableFromStrings(rows, true), delim, nil
}

// Extract returns one body page holding the table's plain text, with the
// table HTML inline on that page.
func Extract(path string) (*model.Extraction, error) {
	ext := model.NewExtraction()
	t, delim, err := Read(path)
	if err != nil {
		return ext, err
	}
	if t.IsEmpty() {
		return ext, nil
	}
	ext.AddPage(tables.PlainText(t), model.TableHTML(tables.HTML(t)))
	ext.SetMetric("csv_rows", t.RowCount())
	ext.SetMetric("csv_delimiter", string(delim))
	return ext, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
