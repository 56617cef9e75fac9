package caption

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/docparse/config"
)

// blocks returns a 256x256 gray image of 64px blocks whose levels sit in
// the middle of the key quantization bins.
func blocks(offset int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			level := (x/64 + y/64 + offset) % 8
			g.Pix[y*g.Stride+x] = uint8(level*32 + 16)
		}
	}
	return g
}

func noise(w, h int, seed int64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = uint8(r.Intn(256))
	}
	return g
}

func reencode(t *testing.T, img image.Image, quality int) image.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	out, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	return out
}

type recordingCaptioner struct {
	batches [][]image.Image
	fail    map[int]bool
}

func (r *recordingCaptioner) Model() string { return "fake" }

func (r *recordingCaptioner) Caption(_ context.Context, images []image.Image) ([]Caption, error) {
	n := len(r.batches)
	r.batches = append(r.batches, images)
	if r.fail[n] {
		return nil, errors.New("backend down")
	}
	out := make([]Caption, len(images))
	for i, img := range images {
		out[i] = Caption{Text: "px " + Mode(img) + string(rune('a'+img.Bounds().Dx()%26)), Model: "fake"}
	}
	return out, nil
}

func TestStubCaption(t *testing.T) {
	tests := []struct {
		img  image.Image
		want string
	}{
		{image.NewGray(image.Rect(0, 0, 10, 20)), "Image 10x20, mode=L"},
		{image.NewRGBA(image.Rect(0, 0, 3, 4)), "Image 3x4, mode=RGBA"},
		{image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420), "Image 8x8, mode=RGB"},
		{image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black}), "Image 2x2, mode=P"},
	}
	for _, tt := range tests {
		got := StubCaption(tt.img)
		assert.Equal(t, tt.want, got.Text)
		assert.Equal(t, StubModel, got.Model)
	}

	opaque := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range opaque.Pix {
		opaque.Pix[i] = 0xff
	}
	assert.Equal(t, "RGB", Mode(opaque))
}

func TestKeyStableAcrossJPEGQuality(t *testing.T) {
	src := blocks(0)
	high := reencode(t, src, 95)
	low := reencode(t, src, 60)

	assert.Equal(t, Key(high), Key(low))
	assert.NotEqual(t, Key(high), Key(blocks(1)))
	assert.Len(t, Key(src), 64)
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(filepath.Join(t.TempDir(), "cache"))

	_, err := c.Get("abc")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.Put("abc", Caption{Text: "a chart", Model: "m"})
	got, err := c.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, Caption{Text: "a chart", Model: "m"}, got)

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
	assert.Equal(t, "abc.json", entries[0].Name())
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.json"), []byte("{not json"), 0o600))
	_, err := NewCache(dir).Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNilCache(t *testing.T) {
	var c *Cache
	assert.Nil(t, NewCache(""))
	c.Put("k", Caption{Text: "x"})
	_, err := c.Get("k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestServiceBatchesInOrder(t *testing.T) {
	rec := &recordingCaptioner{}
	s := NewService(rec, Options{BatchSize: 2})

	var images []image.Image
	for i := 0; i < 5; i++ {
		images = append(images, noise(70+i, 70, int64(i)))
	}

	caps, stats := s.Caption(context.Background(), images)
	require.Len(t, caps, 5)

	sizes := make([]int, len(rec.batches))
	for i, b := range rec.batches {
		sizes[i] = len(b)
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	for i, c := range caps {
		assert.Equal(t, "px L"+string(rune('a'+(70+i)%26)), c.Text)
	}
	assert.Equal(t, 5, stats.Misses)
}

func TestServiceFallsBackPerBatch(t *testing.T) {
	rec := &recordingCaptioner{fail: map[int]bool{1: true}}
	s := NewService(rec, Options{BatchSize: 1})

	images := []image.Image{noise(80, 80, 1), noise(90, 90, 2)}
	caps, stats := s.Caption(context.Background(), images)

	assert.Equal(t, "fake", caps[0].Model)
	assert.Equal(t, Caption{Text: "Image 90x90, mode=L", Model: StubModel}, caps[1])
	assert.Equal(t, 1, stats.Fallbacks)
}

func TestServiceCacheHitAcrossQuality(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingCaptioner{}
	s := NewService(rec, Options{BatchSize: 8, CacheDir: dir})

	src := blocks(0)
	_, stats := s.Caption(context.Background(), []image.Image{reencode(t, src, 95)})
	assert.Equal(t, 0, stats.Hits)
	require.Len(t, rec.batches, 1)

	caps, stats := s.Caption(context.Background(), []image.Image{reencode(t, src, 60)})
	assert.Equal(t, 1, stats.Hits)
	assert.Len(t, rec.batches, 1, "a hit must not reach the backend")
	assert.Equal(t, "fake", caps[0].Model)
}

func TestServiceCacheScopedToModel(t *testing.T) {
	dir := t.TempDir()
	src := blocks(0)

	_, stats := NewService(Stub{}, Options{BatchSize: 8, CacheDir: dir}).Caption(context.Background(), []image.Image{src})
	assert.Equal(t, 1, stats.Misses)

	rec := &recordingCaptioner{}
	caps, stats := NewService(rec, Options{BatchSize: 8, CacheDir: dir}).Caption(context.Background(), []image.Image{src})
	assert.Equal(t, 0, stats.Hits, "stub captions must not be served to another model")
	require.Len(t, rec.batches, 1)
	assert.Equal(t, "fake", caps[0].Model)

	assert.NotEqual(t, ModelKey("fake", src), ModelKey(StubModel, src))
	assert.Equal(t, ModelKey("fake", reencode(t, src, 95)), ModelKey("fake", reencode(t, src, 60)))
}

func TestServiceDoesNotCacheFallbacks(t *testing.T) {
	dir := t.TempDir()
	rec := &recordingCaptioner{fail: map[int]bool{0: true}}
	s := NewService(rec, Options{BatchSize: 8, CacheDir: dir})

	s.Caption(context.Background(), []image.Image{noise(80, 80, 3)})
	entries, err := os.ReadDir(dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestServiceFilter(t *testing.T) {
	s := NewService(nil, Options{MinImageDim: 64, MaxAspectRatio: 8, MinEntropy: 3})

	flat := image.NewGray(image.Rect(0, 0, 200, 200))
	images := []image.Image{
		noise(32, 200, 1),  // too small
		noise(100, 900, 2), // too elongated
		flat,               // no information
		noise(100, 120, 3),
	}
	kept := s.Filter(images)
	require.Len(t, kept, 1)
	assert.Equal(t, 100, kept[0].Bounds().Dx())
}

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, Entropy(image.NewGray(image.Rect(0, 0, 10, 10))))
	assert.InDelta(t, 3.0, Entropy(blocksOf8()), 0.01)
	assert.Greater(t, Entropy(noise(128, 128, 9)), 7.5)
}

// blocksOf8 has eight equally frequent gray levels.
func blocksOf8() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			g.Pix[y*8+x] = uint8(x * 30)
		}
	}
	return g
}

func TestNewBackend(t *testing.T) {
	cfg := config.Default()
	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, StubModel, c.Model())

	cfg.CaptionBackend = config.CaptionBackendOpenAI
	cfg.CaptionModel = "vision-small"
	c, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "vision-small", c.Model())

	cfg.CaptionBackend = "nope"
	_, err = New(cfg)
	assert.Error(t, err)
}
