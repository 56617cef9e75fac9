package format

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PDF, "pdf"},
		{PNG, "png"},
		{JPG, "jpg"},
		{ZIP, "zip"},
		{RTF, "rtf"},
		{HTML, "html"},
		{CSV, "csv"},
		{TXT, "txt"},
		{DOC, "doc"},
		{DOCX, "docx"},
		{ODT, "odt"},
		{XLSX, "xlsx"},
		{Format(99), "txt"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_IsImage(t *testing.T) {
	for _, f := range []Format{PNG, JPG, TIFF, BMP, GIF, WEBP} {
		if !f.IsImage() {
			t.Errorf("%v.IsImage() = false", f)
		}
	}
	for _, f := range []Format{PDF, TXT, ZIP, HTML} {
		if f.IsImage() {
			t.Errorf("%v.IsImage() = true", f)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	bmp := make([]byte, 30)
	copy(bmp, "BM")
	bmp[14] = 40

	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"PDF magic bytes", []byte("%PDF-1.4"), PDF},
		{"PDF after junk", []byte("\x00\x00junk%PDF-1.7\n"), PDF},
		{"PNG", []byte("\x89PNG\r\n\x1a\n\x00\x00"), PNG},
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, JPG},
		{"ZIP", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}, ZIP},
		{"OLE2", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0}, DOC},
		{"GIF", []byte("GIF89a\x01\x00"), GIF},
		{"TIFF little endian", []byte("II*\x00\x08\x00"), TIFF},
		{"WEBP", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), WEBP},
		{"BMP", bmp, BMP},
		{"text starting with BM", []byte("BMW owners manual, chapter one"), TXT},
		{"RTF", []byte(`{\rtf1\ansi hello}`), RTF},
		{"RTF with BOM", []byte("\xEF\xBB\xBF{\\rtf1 x}"), RTF},
		{"HTML with DOCTYPE", []byte("<!DOCTYPE html>\n<html>"), HTML},
		{"HTML with html tag", []byte("<html><head>"), HTML},
		{"HTML with whitespace before DOCTYPE", []byte("  \n  <!DOCTYPE HTML PUBLIC"), HTML},
		{"HTML fragment", []byte("<table><tr><td>x</td></tr></table>"), HTML},
		{"XHTML", []byte(`<?xml version="1.0"?><html xmlns="x">`), HTML},
		{"plain XML", []byte(`<?xml version="1.0"?><note/>`), TXT},
		{"CSV", []byte("a,b\n1,2"), CSV},
		{"semicolon CSV", []byte("name;qty;price\nx;1;2\ny;3;4\n"), CSV},
		{"TSV", []byte("a\tb\n1\t2\n"), CSV},
		{"pipe delimited", []byte("sku|name|qty\nA1|bolt|4\nA2|nut|9\n"), CSV},
		{"pipe framed text table", []byte("| Name | Qty |\n| bolt | 4 |\n"), TXT},
		{"letter with commas", []byte("Dear Sir, thank you for the letter.\nKind regards, Bob\n"), TXT},
		{"short prose pair", []byte("Hello John, I hope you are well\nSee you soon, Mary\n"), TXT},
		{"prose paragraphs", []byte("First, we met at the station today.\nThen, we walked to the old harbour.\nLater, it started raining quite hard.\n"), TXT},
		{"csv with long descriptions", []byte("id,description\n1,a very long product name\n2,another long product name\n3,short\n"), CSV},
		{"inconsistent commas", []byte("Hello, World!\nNo commas here\n"), TXT},
		{"single line", []byte("Hello, World! This is plain text."), TXT},
		{"empty data", []byte{}, TXT},
		{"random data", []byte{0x01, 0x02, 0x03, 0x04, 0x05}, TXT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectIgnoresExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("a,b\n1,2"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := Detect(path); got != CSV {
		t.Errorf("Detect() = %v, want csv", got)
	}
}

func TestDetectMissingFile(t *testing.T) {
	if got := Detect(filepath.Join(t.TempDir(), "missing")); got != TXT {
		t.Errorf("Detect(missing) = %v, want txt", got)
	}
}

func TestDetectLargeCSVHead(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,name,amount\n")
	for sb.Len() < HeadSize*2 {
		sb.WriteString("12345,some longer name value,99.95\n")
	}
	if got := DetectFromMagic([]byte(sb.String())); got != CSV {
		t.Errorf("DetectFromMagic() = %v, want csv", got)
	}
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectContainer(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Format
	}{
		{"docx", map[string]string{"[Content_Types].xml": "", "word/document.xml": ""}, DOCX},
		{"xlsx", map[string]string{"[Content_Types].xml": "", "xl/workbook.xml": ""}, XLSX},
		{"odt", map[string]string{"mimetype": "application/vnd.oasis.opendocument.text", "content.xml": ""}, ODT},
		{"plain zip", map[string]string{"readme.txt": "hi"}, ZIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildZip(t, tt.files)
			got, err := DetectContainer(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("DetectContainer() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectContainer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.bin")
	data := buildZip(t, map[string]string{"word/document.xml": ""})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if got := DetectFile(path); got != DOCX {
		t.Errorf("DetectFile() = %v, want docx", got)
	}
}
