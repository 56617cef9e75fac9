//go:build !ocr

// Package ocr recognizes text in images through Tesseract.
//
// Without the "ocr" build tag the package is built without Tesseract: New
// fails with ErrOCRNotEnabled and the pipeline runs with OCR disabled.
// Build with
//
//	go build -tags ocr
//
// after installing Tesseract and its headers (brew install tesseract, or
// apt-get install tesseract-ocr libtesseract-dev).
package ocr

// Client stands in for the Tesseract client in builds without OCR.
type Client struct{}

// New always fails with ErrOCRNotEnabled.
func New(string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close does nothing. It is safe on a nil client.
func (c *Client) Close() error {
	return nil
}

// Recognize always fails with ErrOCRNotEnabled.
func (c *Client) Recognize([]byte, RecognitionConfig) (string, error) {
	return "", ErrOCRNotEnabled
}
