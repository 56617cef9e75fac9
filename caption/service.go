package caption

import (
	"context"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
)

// Options control filtering and batching in a Service.
type Options struct {
	BatchSize      int
	MinImageDim    int
	MaxAspectRatio float64
	MinEntropy     float64
	CacheDir       string
	Logger         *slog.Logger
}

// Stats summarizes one Service.Caption call.
type Stats struct {
	Hits      int
	Misses    int
	Fallbacks int
}

// Service captions images through a cache and a backend.
type Service struct {
	backend Captioner
	cache   *Cache
	opts    Options
	logger  *slog.Logger
}

// NewService wraps backend. A nil backend captions with Stub.
func NewService(backend Captioner, opts Options) *Service {
	if backend == nil {
		backend = Stub{}
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		backend: backend,
		cache:   NewCache(opts.CacheDir),
		opts:    opts,
		logger:  logger,
	}
}

// Filter returns the images worth captioning, in input order.
func (s *Service) Filter(images []image.Image) []image.Image {
	var out []image.Image
	for _, img := range images {
		if s.keep(img) {
			out = append(out, img)
		}
	}
	return out
}

func (s *Service) keep(img image.Image) bool {
	if img == nil {
		return false
	}
	b := img.Bounds()
	short, long := min(b.Dx(), b.Dy()), max(b.Dx(), b.Dy())
	if short == 0 || short < s.opts.MinImageDim {
		return false
	}
	if s.opts.MaxAspectRatio > 0 && float64(long)/float64(short) > s.opts.MaxAspectRatio {
		return false
	}
	if s.opts.MinEntropy > 0 && Entropy(img) < s.opts.MinEntropy {
		return false
	}
	return true
}

// Caption returns one caption per image, in input order. Cached captions
// are reused; misses go to the backend in batches of Options.BatchSize. A
// batch the backend fails on gets stub captions, which are not cached.
func (s *Service) Caption(ctx context.Context, images []image.Image) ([]Caption, Stats) {
	var stats Stats
	results := make([]Caption, len(images))
	keys := make([]string, len(images))

	var misses []int
	for i, img := range images {
		if s.cache != nil {
			keys[i] = ModelKey(s.backend.Model(), img)
			if entry, err := s.cache.Get(keys[i]); err == nil {
				results[i] = entry
				stats.Hits++
				continue
			}
		}
		misses = append(misses, i)
	}
	stats.Misses = len(misses)

	for start := 0; start < len(misses); start += s.opts.BatchSize {
		idx := misses[start:min(start+s.opts.BatchSize, len(misses))]
		batch := make([]image.Image, len(idx))
		for j, i := range idx {
			batch[j] = images[i]
		}

		caps, err := s.backend.Caption(ctx, batch)
		if err == nil && len(caps) != len(batch) {
			s.logger.Warn("caption backend returned wrong count", "want", len(batch), "got", len(caps))
			err = errWrongCount
		}
		if err != nil {
			s.logger.Warn("caption batch failed, using stub captions", "model", s.backend.Model(), "size", len(batch), "error", err)
			for j, i := range idx {
				results[i] = StubCaption(batch[j])
			}
			stats.Fallbacks += len(idx)
			continue
		}

		for j, i := range idx {
			results[i] = caps[j]
			if s.cache != nil {
				s.cache.Put(keys[i], caps[j])
			}
		}
	}

	s.logger.Debug("captioned images", "count", len(images), "hits", stats.Hits, "misses", stats.Misses)
	return results, stats
}

// Entropy returns the Shannon entropy in bits of the grayscale histogram of
// img. Flat images score 0 and noise approaches 8.
func Entropy(img image.Image) float64 {
	g := imaging.Grayscale(img)
	var hist [256]int
	n := 0
	for i := 0; i < len(g.Pix); i += 4 {
		hist[g.Pix[i]]++
		n++
	}
	if n == 0 {
		return 0
	}
	var e float64
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		e -= p * math.Log2(p)
	}
	return e
}
