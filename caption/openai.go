package caption

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	captionPrompt = "Describe this image in one or two sentences for a search index. " +
		"Mention any visible text, charts or tables. Do not speculate."

	// Larger images are scaled down before upload.
	maxUploadSide = 1024
)

// OpenAI captions images through an OpenAI-compatible chat completions
// endpoint that accepts image inputs.
type OpenAI struct {
	model       string
	completions openai.ChatCompletionService
}

// NewOpenAI creates a vision backend. An empty url targets api.openai.com.
func NewOpenAI(url, token, model string, client *http.Client) *OpenAI {
	if url == "" {
		url = "https://api.openai.com/v1/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	url = strings.TrimRight(url, "/") + "/"

	options := []option.RequestOption{
		option.WithBaseURL(url),
		option.WithHTTPClient(client),
		option.WithMaxRetries(1),
	}
	if token != "" {
		options = append(options, option.WithAPIKey(token))
	}

	return &OpenAI{
		model:       model,
		completions: openai.NewChatCompletionService(options...),
	}
}

// Model implements Captioner.
func (o *OpenAI) Model() string { return o.model }

// Caption implements Captioner. Images are sent one request each; the first
// failure aborts the batch.
func (o *OpenAI) Caption(ctx context.Context, images []image.Image) ([]Caption, error) {
	out := make([]Caption, 0, len(images))
	for i, img := range images {
		text, err := o.describe(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("captioning image %d: %w", i, err)
		}
		out = append(out, Caption{Text: text, Model: o.model})
	}
	return out, nil
}

func (o *OpenAI) describe(ctx context.Context, img image.Image) (string, error) {
	url, err := dataURL(img)
	if err != nil {
		return "", err
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(captionPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: url,
		}),
	}

	completion, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no choices in completion")
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty caption")
	}
	return text, nil
}

func dataURL(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Dx() > maxUploadSide || b.Dy() > maxUploadSide {
		img = imaging.Fit(img, maxUploadSide, maxUploadSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
