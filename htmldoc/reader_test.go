package htmldoc

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/tsawler/docparse/tables"
)

func parse(t *testing.T, src string, opts ...Option) *Reader {
	t.Helper()
	r, err := Parse([]byte(src), opts...)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return r
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"paragraphs", `<p>First</p><p>Second</p>`, "First\nSecond"},
		{"inline elements join", `<p>Hello <b>bold</b> and <i>italic</i>.</p>`, "Hello bold and italic."},
		{"line break", `<p>one<br>two</p>`, "one\ntwo"},
		{"headings and lists", `<h1>Title</h1><ul><li>a</li><li>b</li></ul>`, "Title\na\nb"},
		{"whitespace folded", "<p>  lots\n\n   of    space </p>", "lots of space"},
		{"pre keeps layout", "<pre>a  b\n  c</pre>", "a  b\n  c"},
		{"entities", `<p>Fish &amp; Chips &lt;3</p>`, "Fish & Chips <3"},
		{"script and style removed", `<style>p{}</style><p>x</p><script>var y = 1;</script>`, "x"},
		{"title removed", `<html><head><title>Tab title</title></head><body><p>body</p></body></html>`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parse(t, tt.html).Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoilerplateRemoval(t *testing.T) {
	page := `<html><body>
		<header><h1>Site Header</h1></header>
		<nav><a href="/">Home</a><a href="/about">About</a></nav>
		<div class="main-menu">Products Services</div>
		<main><h2>Article</h2><p>Article content</p></main>
		<aside><p>Sidebar content</p></aside>
		<div id="site-footer">Copyright 2024</div>
		<footer>Legal</footer>
	</body></html>`

	tests := []struct {
		name           string
		mode           NavigationExclusionMode
		wantContains   []string
		wantNotContain []string
	}{
		{
			name:           "none keeps class-named chrome",
			mode:           NavigationExclusionNone,
			wantContains:   []string{"Article content", "Products Services", "Copyright 2024"},
			wantNotContain: []string{"Site Header", "Home", "Sidebar content", "Legal"},
		},
		{
			name:           "standard drops class-named chrome",
			mode:           NavigationExclusionStandard,
			wantContains:   []string{"Article", "Article content"},
			wantNotContain: []string{"Site Header", "Home", "Products", "Sidebar content", "Copyright", "Legal"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := parse(t, page, WithExclusion(tt.mode)).Text()
			for _, want := range tt.wantContains {
				if !strings.Contains(text, want) {
					t.Errorf("text missing %q:\n%s", want, text)
				}
			}
			for _, bad := range tt.wantNotContain {
				if strings.Contains(text, bad) {
					t.Errorf("text contains %q:\n%s", bad, text)
				}
			}
		})
	}
}

func TestAggressiveLinkDensity(t *testing.T) {
	page := `<div><a href="/one">One</a> <a href="/two">Two</a> <a href="/three">Three</a> <a href="/four">Four</a></div>
<p>Real paragraph with a <a href="/x">link</a> inside.</p>`

	standard := parse(t, page).Text()
	if !strings.Contains(standard, "Three") {
		t.Errorf("standard mode should keep link lists: %q", standard)
	}

	aggressive := parse(t, page, WithExclusion(NavigationExclusionAggressive)).Text()
	if strings.Contains(aggressive, "Three") {
		t.Errorf("aggressive mode should drop link lists: %q", aggressive)
	}
	if !strings.Contains(aggressive, "Real paragraph with a link inside.") {
		t.Errorf("aggressive mode dropped content: %q", aggressive)
	}
}

func TestShortLinesDeduplicated(t *testing.T) {
	page := `<p>Share</p><p>Long enough body text that appears once.</p><p>Share</p>`
	if got := parse(t, page).Text(); got != "Share\nLong enough body text that appears once." {
		t.Errorf("Text() = %q", got)
	}
}

func TestTableColspan(t *testing.T) {
	r := parse(t, `<p>before</p><table><tr><td colspan="2">X</td></tr><tr><td>c1</td><td>c2</td></tr></table><p>after</p>`)

	if got := r.Text(); got != "before\nafter" {
		t.Errorf("Text() = %q, tables should not be in the body text", got)
	}
	if len(r.Tables()) != 1 {
		t.Fatalf("Tables() = %d, want 1", len(r.Tables()))
	}
	want := [][]string{{"X", ""}, {"c1", "c2"}}
	if got := tables.Flatten(r.Tables()[0]); !reflect.DeepEqual(got, want) {
		t.Errorf("Flatten() = %v, want %v", got, want)
	}
}

func TestTableHeadersAndSpans(t *testing.T) {
	r := parse(t, `<table>
<thead><tr><td>Name</td><th>Qty</th></tr></thead>
<tbody>
<tr><th rowspan="2">bolts</th><td>4</td></tr>
<tr><td colspan="0">5</td></tr>
<tr><td rowspan="abc"><p>multi</p><p>line</p></td><td>6</td></tr>
</tbody></table>`)

	rows := r.Tables()[0].Rows
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if !rows[0][0].IsHeader || !rows[0][1].IsHeader {
		t.Errorf("thead cells should be headers: %+v", rows[0])
	}
	if !rows[1][0].IsHeader || rows[1][0].RowSpan != 2 || rows[1][1].IsHeader {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2][0].ColSpan != 1 {
		t.Errorf("colspan=0 should read as 1, got %d", rows[2][0].ColSpan)
	}
	if rows[3][0].Text != "multi\nline" || rows[3][0].RowSpan != 1 {
		t.Errorf("row 3 = %+v", rows[3])
	}
}

func TestNestedTableFoldsIntoCell(t *testing.T) {
	r := parse(t, `<table><tr><td>outer</td><td><table><tr><td>a</td><td>b</td></tr></table></td></tr></table>`)
	if len(r.Tables()) != 1 {
		t.Fatalf("Tables() = %d, want 1", len(r.Tables()))
	}
	if got := r.Tables()[0].Rows[0][1].Text; got != "a | b" {
		t.Errorf("nested cell = %q", got)
	}
}

func TestEmptyTableDropped(t *testing.T) {
	r := parse(t, `<table><tr><td> </td></tr></table><p>x</p>`)
	if len(r.Tables()) != 0 {
		t.Errorf("Tables() = %d, want 0", len(r.Tables()))
	}
}

func dataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDataImages(t *testing.T) {
	page := `<p>Logo</p><img src="` + dataURI(t, 12, 7) + `"><img src="https://example.com/x.png"><img src="` + dataURI(t, 3, 3) + `">`

	r := parse(t, page, WithMaxImages(5))
	if len(r.Images()) != 2 {
		t.Fatalf("Images() = %d, want 2", len(r.Images()))
	}
	if b := r.Images()[0].Bounds(); b.Dx() != 12 || b.Dy() != 7 {
		t.Errorf("first image bounds = %v", b)
	}

	if got := parse(t, page, WithMaxImages(1)).Images(); len(got) != 1 {
		t.Errorf("WithMaxImages(1) gave %d images", len(got))
	}
	if got := parse(t, page).Images(); len(got) != 0 {
		t.Errorf("default max images should be 0, got %d", len(got))
	}
}

func TestWindows1252Meta(t *testing.T) {
	src := []byte(`<html><head><meta charset="windows-1252"></head><body><p>caf` + "\xe9" + `</p></body></html>`)
	r, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Text(); got != "café" {
		t.Errorf("Text() = %q, want café", got)
	}
}

func TestOpenAndExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(`<p>Invoice</p><table><tr><td>a</td><td>b</td></tr></table>`), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	ext := r.Extract()
	if len(ext.Pages) != 1 || ext.Pages[0].Text != "Invoice" {
		t.Errorf("Pages = %+v", ext.Pages)
	}
	if len(ext.Tables) != 1 {
		t.Errorf("Tables = %d", len(ext.Tables))
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("expected error")
	}
}
