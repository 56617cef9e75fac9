// Package pdfdoc extracts text, tables and embedded images from PDF files.
//
// Extraction runs as a small state machine:
//
//	SanityCheck -> HasTextLayer -> TextLayerPath | ImageOnlyPath
//	            -> TableExtraction -> EmbeddedImageOCR
//
// A file that fails the sanity check yields nothing. Files with a text
// layer are read page by page; blank pages are rendered and OCR'd up to a
// page limit. Files without one are rendered and OCR'd in full unless they
// exceed the size or page guards. Every call into the PDF libraries is
// guarded against panics, which some malformed files trigger.
package pdfdoc
