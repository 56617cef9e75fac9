package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "NC"

// Keys understood by Load, as flag names and (upper-cased, prefixed)
// environment variables.
const (
	KeyConfigFile            = "config"
	KeyOCRLanguage           = "ocr_language"
	KeyOCRPageSegMode        = "ocr_psm"
	KeyOCRDebug              = "ocr_debug"
	KeyOCRDebugDir           = "ocr_debug_dir"
	KeyPDFOCRPageLimit       = "pdf_ocr_page_limit"
	KeyImageOCRMaxFileMB     = "image_ocr_max_file_mb"
	KeyImageOCRMaxPages      = "image_ocr_max_pages"
	KeyMaxEmbeddedImages     = "max_embedded_images"
	KeyRenderDPI             = "render_dpi"
	KeyCaptioningEnabled     = "captioning_enabled"
	KeyCaptionBackend        = "caption_backend"
	KeyCaptionModel          = "caption_model"
	KeyCaptionBaseURL        = "caption_base_url"
	KeyCaptionAPIKey         = "caption_api_key"
	KeyCaptionTimeout        = "caption_timeout"
	KeyCaptionBatchSize      = "caption_batch_size"
	KeyCaptionMinImageDim    = "caption_min_image_dim"
	KeyCaptionMaxAspectRatio = "caption_max_aspect_ratio"
	KeyCaptionMinEntropy     = "caption_min_entropy"
	KeyCaptionCacheDir       = "caption_cache_dir"
	KeyDataDir               = "data_dir"
	KeyNoiseFilter           = "noise_filter"
	KeyFieldExtraction       = "field_extraction"
)

// DefineFlags registers one flag per configuration key on fs, with the
// defaults of Default.
func DefineFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(KeyConfigFile, "", "Optional configuration file (yaml, json or toml)")
	fs.String(KeyOCRLanguage, d.OCRLanguage, "Tesseract language(s), e.g. eng+deu")
	fs.Int(KeyOCRPageSegMode, d.OCRPageSegMode, "Preferred Tesseract page segmentation mode")
	fs.Bool(KeyOCRDebug, d.OCRDebug, "Save every OCR preprocessing variant")
	fs.String(KeyOCRDebugDir, d.OCRDebugDir, "Directory for OCR debug images")
	fs.Int(KeyPDFOCRPageLimit, d.PDFOCRPageLimit, "Highest PDF page number eligible for per-page OCR")
	fs.Int(KeyImageOCRMaxFileMB, d.ImageOCRMaxFileMB, "Skip OCR of image-only PDFs larger than this (MB)")
	fs.Int(KeyImageOCRMaxPages, d.ImageOCRMaxPages, "Skip OCR of image-only PDFs with more pages than this")
	fs.Int(KeyMaxEmbeddedImages, d.MaxEmbeddedImages, "Maximum embedded images to OCR")
	fs.Int(KeyRenderDPI, d.RenderDPI, "Resolution used to render PDF pages for OCR")
	fs.Bool(KeyCaptioningEnabled, d.CaptioningEnabled, "Caption embedded images")
	fs.String(KeyCaptionBackend, d.CaptionBackend, "Caption backend: stub or openai")
	fs.String(KeyCaptionModel, d.CaptionModel, "Model name for the openai caption backend")
	fs.String(KeyCaptionBaseURL, d.CaptionBaseURL, "Base URL of an OpenAI-compatible endpoint")
	fs.String(KeyCaptionAPIKey, d.CaptionAPIKey, "API key for the caption backend")
	fs.Duration(KeyCaptionTimeout, d.CaptionTimeout, "HTTP timeout of the caption backend")
	fs.Int(KeyCaptionBatchSize, d.CaptionBatchSize, "Images per caption backend batch")
	fs.Int(KeyCaptionMinImageDim, d.CaptionMinImageDim, "Minimum image side in pixels for captioning")
	fs.Float64(KeyCaptionMaxAspectRatio, d.CaptionMaxAspectRatio, "Skip images with a larger aspect ratio")
	fs.Float64(KeyCaptionMinEntropy, d.CaptionMinEntropy, "Skip images with lower grayscale entropy (bits)")
	fs.String(KeyCaptionCacheDir, d.CaptionCacheDir, "Caption cache directory (default <data_dir>/caption-cache)")
	fs.String(KeyDataDir, d.DataDir, "Data directory")
	fs.Bool(KeyNoiseFilter, d.NoiseFilter, "Drop noise lines during normalization")
	fs.Bool(KeyFieldExtraction, d.FieldExtraction, "Extract key fields from the assembled text")
}

// Load builds a Config from defaults, an optional config file, NC_*
// environment variables and the flags in fs, in increasing precedence.
// fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setupViperEnvironment(v)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("binding flags: %w", err)
		}
	}

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config file %s: %w", file, err)
			}
		}
	}

	cfg := populateConfigFromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper) {
	d := Default()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyConfigFile, "")
	v.SetDefault(KeyOCRLanguage, d.OCRLanguage)
	v.SetDefault(KeyOCRPageSegMode, d.OCRPageSegMode)
	v.SetDefault(KeyOCRDebug, d.OCRDebug)
	v.SetDefault(KeyOCRDebugDir, d.OCRDebugDir)
	v.SetDefault(KeyPDFOCRPageLimit, d.PDFOCRPageLimit)
	v.SetDefault(KeyImageOCRMaxFileMB, d.ImageOCRMaxFileMB)
	v.SetDefault(KeyImageOCRMaxPages, d.ImageOCRMaxPages)
	v.SetDefault(KeyMaxEmbeddedImages, d.MaxEmbeddedImages)
	v.SetDefault(KeyRenderDPI, d.RenderDPI)
	v.SetDefault(KeyCaptioningEnabled, d.CaptioningEnabled)
	v.SetDefault(KeyCaptionBackend, d.CaptionBackend)
	v.SetDefault(KeyCaptionModel, d.CaptionModel)
	v.SetDefault(KeyCaptionBaseURL, d.CaptionBaseURL)
	v.SetDefault(KeyCaptionAPIKey, d.CaptionAPIKey)
	v.SetDefault(KeyCaptionTimeout, d.CaptionTimeout)
	v.SetDefault(KeyCaptionBatchSize, d.CaptionBatchSize)
	v.SetDefault(KeyCaptionMinImageDim, d.CaptionMinImageDim)
	v.SetDefault(KeyCaptionMaxAspectRatio, d.CaptionMaxAspectRatio)
	v.SetDefault(KeyCaptionMinEntropy, d.CaptionMinEntropy)
	v.SetDefault(KeyCaptionCacheDir, d.CaptionCacheDir)
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyNoiseFilter, d.NoiseFilter)
	v.SetDefault(KeyFieldExtraction, d.FieldExtraction)
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper) Config {
	return Config{
		OCRLanguage:           v.GetString(KeyOCRLanguage),
		OCRPageSegMode:        v.GetInt(KeyOCRPageSegMode),
		OCRDebug:              v.GetBool(KeyOCRDebug),
		OCRDebugDir:           v.GetString(KeyOCRDebugDir),
		PDFOCRPageLimit:       v.GetInt(KeyPDFOCRPageLimit),
		ImageOCRMaxFileMB:     v.GetInt(KeyImageOCRMaxFileMB),
		ImageOCRMaxPages:      v.GetInt(KeyImageOCRMaxPages),
		MaxEmbeddedImages:     v.GetInt(KeyMaxEmbeddedImages),
		RenderDPI:             v.GetInt(KeyRenderDPI),
		CaptioningEnabled:     v.GetBool(KeyCaptioningEnabled),
		CaptionBackend:        v.GetString(KeyCaptionBackend),
		CaptionModel:          v.GetString(KeyCaptionModel),
		CaptionBaseURL:        v.GetString(KeyCaptionBaseURL),
		CaptionAPIKey:         v.GetString(KeyCaptionAPIKey),
		CaptionTimeout:        v.GetDuration(KeyCaptionTimeout),
		CaptionBatchSize:      v.GetInt(KeyCaptionBatchSize),
		CaptionMinImageDim:    v.GetInt(KeyCaptionMinImageDim),
		CaptionMaxAspectRatio: v.GetFloat64(KeyCaptionMaxAspectRatio),
		CaptionMinEntropy:     v.GetFloat64(KeyCaptionMinEntropy),
		CaptionCacheDir:       v.GetString(KeyCaptionCacheDir),
		DataDir:               v.GetString(KeyDataDir),
		NoiseFilter:           v.GetBool(KeyNoiseFilter),
		FieldExtraction:       v.GetBool(KeyFieldExtraction),
	}
}
