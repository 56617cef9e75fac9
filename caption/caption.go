package caption

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/tsawler/docparse/config"
)

// Caption is a description of one image and the model that produced it.
type Caption struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Captioner describes images. Implementations return exactly one caption per
// input image, in input order.
type Captioner interface {
	Caption(ctx context.Context, images []image.Image) ([]Caption, error)
	Model() string
}

// New returns the backend selected by cfg.CaptionBackend.
func New(cfg config.Config) (Captioner, error) {
	switch cfg.CaptionBackend {
	case "", config.CaptionBackendStub:
		return Stub{}, nil
	case config.CaptionBackendOpenAI:
		return NewOpenAI(cfg.CaptionBaseURL, cfg.CaptionAPIKey, cfg.CaptionModel,
			&http.Client{Timeout: cfg.CaptionTimeout}), nil
	default:
		return nil, fmt.Errorf("unknown caption backend %q", cfg.CaptionBackend)
	}
}

var errWrongCount = errors.New("caption count does not match image count")
