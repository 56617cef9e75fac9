// Package model defines the result types produced by the parsing pipeline.
//
// A [Document] is created fresh for every parse call. It carries the
// assembled full text, an ordered list of [Page] values and the timing and
// metric maps filled in by the orchestrator:
//
//	doc := model.NewDocument()
//	doc.AddPage("body text")
//	doc.AddPage("", model.TableHTML("<table>...</table>"))
//
// Pages are appended in extraction order: body text pages first, then the
// embedded-image OCR page, the caption page, the tables page and finally the
// fields page. Page indexes are assigned by [Document.AddPage] and always run
// from zero without gaps.
//
// # Elements
//
// Page elements are a tagged variant. The [ElementType] tells which fields
// are meaningful:
//
//   - [ElementTableHTML] - description holds rendered HTML
//   - [ElementImageOCR] - description holds recognized text
//   - [ElementImageCaption] - description holds the caption, model names the backend
//   - [ElementFields] - description holds a JSON object of extracted fields
//
// # Tables
//
// [Table] and [Cell] are the transient structural form used while
// reconstructing tables. Rows list only the cells that start at a grid
// position; positions covered by a span from another cell are omitted.
//
// # Extraction
//
// [Extraction] is what a per-format extractor hands back to the
// orchestrator before the shared tail stages run.
package model
