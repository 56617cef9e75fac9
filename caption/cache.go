package caption

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/crypto/blake2b"
)

// ErrCacheMiss is returned by Cache.Get when no caption is stored for a key.
var ErrCacheMiss = errors.New("caption cache miss")

const (
	keySide  = 32
	keyShift = 5 // 256 gray values down to 8 levels
)

// Key returns the content address of img. The image is reduced to a 32x32
// grayscale thumbnail quantized to eight levels before hashing, so
// re-encodings of the same picture at a different quality share a key.
func Key(img image.Image) string {
	thumb := imaging.Resize(img, keySide, keySide, imaging.Box)

	g := image.NewGray(image.Rect(0, 0, keySide, keySide))
	for y := 0; y < keySide; y++ {
		for x := 0; x < keySide; x++ {
			i := y*thumb.Stride + x*4
			r, gr, b := float64(thumb.Pix[i]), float64(thumb.Pix[i+1]), float64(thumb.Pix[i+2])
			lum := 0.299*r + 0.587*gr + 0.114*b
			g.Pix[y*g.Stride+x] = uint8(lum+0.5) >> keyShift
		}
	}

	var buf bytes.Buffer
	// Encoding a fixed-size in-memory Gray image does not fail.
	_ = png.Encode(&buf, g)
	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// ModelKey scopes Key to a caption model, so captions written by one
// backend are never served for another.
func ModelKey(model string, img image.Image) string {
	sum := blake2b.Sum256([]byte(model + "\x00" + Key(img)))
	return hex.EncodeToString(sum[:])
}

// Cache stores captions as one JSON file per key. A nil Cache or one with
// an empty directory stores nothing. I/O errors are never reported; a
// failed read is a miss and a failed write is dropped.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir, or nil when dir is empty.
func NewCache(dir string) *Cache {
	if dir == "" {
		return nil
	}
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the stored caption for key or ErrCacheMiss.
func (c *Cache) Get(key string) (Caption, error) {
	if c == nil {
		return Caption{}, ErrCacheMiss
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return Caption{}, ErrCacheMiss
	}
	var entry Caption
	if err := json.Unmarshal(data, &entry); err != nil || entry.Text == "" {
		return Caption{}, ErrCacheMiss
	}
	return entry, nil
}

// Put stores entry under key. The file is written to a temporary name and
// renamed into place so concurrent readers never see a partial entry.
func (c *Cache) Put(key string, entry Caption) {
	if c == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmp.Name())
		return
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
	}
}
