package ocr

import (
	"errors"
	"image"
	"io"

	"github.com/disintegration/imaging"

	// Decoders beyond those imaging registers.
	_ "golang.org/x/image/webp"
)

// ErrOCRNotEnabled is returned when OCR functions are called but OCR support
// was not compiled in. Rebuild with -tags ocr to enable OCR support.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// PageSegMode represents page segmentation modes for OCR.
// These control how Tesseract analyzes the page layout.
type PageSegMode int

// Page segmentation modes, numbered as in Tesseract.
const (
	PSM_OSD_ONLY               PageSegMode = 0  // Orientation and script detection only
	PSM_AUTO_OSD               PageSegMode = 1  // Automatic with OSD
	PSM_AUTO_ONLY              PageSegMode = 2  // Automatic, no OSD or OCR
	PSM_AUTO                   PageSegMode = 3  // Fully automatic (default)
	PSM_SINGLE_COLUMN          PageSegMode = 4  // Single column of variable sizes
	PSM_SINGLE_BLOCK_VERT_TEXT PageSegMode = 5  // Single uniform block of vertically aligned text
	PSM_SINGLE_BLOCK           PageSegMode = 6  // Single uniform block of text
	PSM_SINGLE_LINE            PageSegMode = 7  // Single text line
	PSM_SINGLE_WORD            PageSegMode = 8  // Single word
	PSM_CIRCLE_WORD            PageSegMode = 9  // Single word in a circle
	PSM_SINGLE_CHAR            PageSegMode = 10 // Single character
	PSM_SPARSE_TEXT            PageSegMode = 11 // Find as much text as possible
	PSM_SPARSE_TEXT_OSD        PageSegMode = 12 // Sparse text with OSD
	PSM_RAW_LINE               PageSegMode = 13 // Treat image as single text line
)

// EngineMode selects the Tesseract recognition engine (OEM).
type EngineMode int

const (
	OEM_TESSERACT_ONLY EngineMode = 0
	OEM_LSTM_ONLY      EngineMode = 1
	OEM_COMBINED       EngineMode = 2
	OEM_DEFAULT        EngineMode = 3
)

// NoiseBlacklist lists characters that are almost always misreads of
// specks, rules and borders.
const NoiseBlacklist = "|~`^{}<>\\¦"

// RecognitionConfig is one point of the recognition search space.
type RecognitionConfig struct {
	EngineMode              EngineMode
	PageSegMode             PageSegMode
	PreserveInterwordSpaces bool
	Blacklist               string
}

// Recognizer turns an encoded image into text under a configuration.
type Recognizer interface {
	Recognize(image []byte, cfg RecognitionConfig) (string, error)
}

// DefaultConfigs returns the ordered configuration list tried for every
// image variant. A configuration using the preferred segmentation mode comes
// first.
func DefaultConfigs(preferred PageSegMode) []RecognitionConfig {
	configs := []RecognitionConfig{
		{OEM_DEFAULT, preferred, true, NoiseBlacklist},
	}
	for _, c := range []RecognitionConfig{
		{OEM_DEFAULT, PSM_SINGLE_BLOCK, true, NoiseBlacklist},
		{OEM_DEFAULT, PSM_SINGLE_COLUMN, true, NoiseBlacklist},
		{OEM_DEFAULT, PSM_AUTO, false, NoiseBlacklist},
		{OEM_LSTM_ONLY, PSM_SINGLE_BLOCK, false, ""},
		{OEM_DEFAULT, PSM_SPARSE_TEXT, false, NoiseBlacklist},
	} {
		if c != configs[0] {
			configs = append(configs, c)
		}
	}
	return configs
}

// DecodeImage decodes PNG, JPEG, GIF, TIFF, BMP and WebP data, applying
// EXIF orientation.
func DecodeImage(r io.Reader) (image.Image, error) {
	return imaging.Decode(r, imaging.AutoOrientation(true))
}
