package rtf

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/docparse/tables"
)

func parseString(t *testing.T, src string, maxImages int) *Document {
	t.Helper()
	doc, err := Parse([]byte(src), maxImages)
	require.NoError(t, err)
	return doc
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"formatting and paragraphs",
			`{\rtf1\ansi\ansicpg1252\deff0{\fonttbl{\f0 Times;}}{\colortbl;\red0\green0\blue0;}\f0\fs24 Hello \b world\b0 .\par Second line\par}`,
			"Hello world.\nSecond line",
		},
		{"hex and unicode escapes", `{\rtf1 caf\'e9 \u8364? and \{x\}\par}`, "café € and {x}"},
		{"uc0 has no fallback", `{\rtf1\uc0\u8364 x}`, "€x"},
		{"uc2 skips two", `{\rtf1\uc2\u8364\'80\'80 y}`, "€ y"},
		{"surrogate pair", `{\rtf1\u-10179?\u-8704?}`, "\U0001F600"},
		{"special characters", `{\rtf1 a\emdash b\tab c\line d\_e\~f}`, "a—b\tc\nd-e\u00a0f"},
		{
			"skipped destinations",
			`{\rtf1{\info{\title Secret}}{\*\generator Foo;}{\*\unknown stuff}{\header Head}{\stylesheet{\s0 Normal;}}Body\par}`,
			"Body",
		},
		{"field result kept", `{\rtf1{\field{\*\fldinst HYPERLINK "http://x"}{\fldrslt Click}}\par}`, "Click"},
		{"code page 1251", `{\rtf1\ansi\ansicpg1251 \'cf\'f0\'e8\'e2\'e5\'f2}`, "Привет"},
		{"source newlines ignored", "{\\rtf1 one\r\ntwo\\\nthree}", "onetwo\nthree"},
		{"unbalanced braces", `{\rtf1 open {group`, "open group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseString(t, tt.src, 0).Text)
		})
	}
}

func TestNotRTF(t *testing.T) {
	_, err := Parse([]byte("plain text"), 0)
	assert.Error(t, err)
}

func TestTableWithMerges(t *testing.T) {
	src := `{\rtf1\ansi
Intro\par
\trowd\trhdr\cellx1000\cellx2000\cellx3000
\intbl Name\cell Qty\cell Price\cell\row
\trowd\clvmgf\cellx1000\cellx2000\cellx3000
\intbl bolt\cell 4\cell 1.00\cell\row
\trowd\clvmrg\cellx1000\clmgf\cellx2000\clmrg\cellx3000
\intbl \cell 9\cell\cell\row
\pard After\par}`

	doc := parseString(t, src, 0)
	assert.Equal(t, "Intro\nAfter", doc.Text)
	require.Len(t, doc.Tables, 1)

	rows := doc.Tables[0].Rows
	require.Len(t, rows, 3)
	assert.True(t, rows[0][0].IsHeader)
	assert.False(t, rows[1][0].IsHeader)
	assert.Equal(t, 2, rows[1][0].RowSpan)
	require.Len(t, rows[2], 1)
	assert.Equal(t, 2, rows[2][0].ColSpan)

	want := [][]string{
		{"Name", "Qty", "Price"},
		{"bolt", "4", "1.00"},
		{"", "9", ""},
	}
	assert.Equal(t, want, tables.Flatten(doc.Tables[0]))
}

func TestTablesSeparatedByText(t *testing.T) {
	src := `{\rtf1\trowd\cellx1000\cellx2000 a\cell b\cell\row\pard Between\par\trowd\cellx1000\cellx2000 c\cell d\cell\row}`
	doc := parseString(t, src, 0)
	assert.Equal(t, "Between", doc.Text)
	assert.Len(t, doc.Tables, 2)
}

func pngHex(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	enc := hex.EncodeToString(buf.Bytes())
	// Writers wrap picture data.
	var wrapped bytes.Buffer
	for len(enc) > 64 {
		wrapped.WriteString(enc[:64] + "\n")
		enc = enc[64:]
	}
	wrapped.WriteString(enc)
	return wrapped.String()
}

func TestPictures(t *testing.T) {
	src := `{\rtf1 {\*\shppict{\pict{\*\picprop{\sp{\sn x}{\sv 1}}}\pngblip\picw6\pich4 ` + pngHex(t, 6, 4) + `}}` +
		`{\nonshppict{\pict\wmetafile8 0102}}Text{\pict\emfblip 0a0b}}`

	doc := parseString(t, src, 5)
	assert.Equal(t, "Text", doc.Text)
	require.Len(t, doc.Images, 1)
	assert.Equal(t, 6, doc.Images[0].Bounds().Dx())

	assert.Empty(t, parseString(t, src, 0).Images)
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.rtf")
	require.NoError(t, os.WriteFile(path, []byte(`{\rtf1 Total\par\trowd\cellx100 x\cell\row}`), 0o600))

	ext, err := Extract(path, 1)
	require.NoError(t, err)
	require.Len(t, ext.Pages, 1)
	assert.Equal(t, "Total", ext.Pages[0].Text)
	assert.Len(t, ext.Tables, 1)

	ext, err = Extract(filepath.Join(t.TempDir(), "missing.rtf"), 1)
	assert.Error(t, err)
	assert.NotNil(t, ext)
}
