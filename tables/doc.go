// Package tables reconstructs tables from structural cell data or from
// plain text.
//
// A [model.Table] lists, for every row, the cells that start in that row.
// Cells may span several columns and rows. This package turns such a table
// into:
//
//   - HTML with bordered cells, header rows in a thead and span attributes
//     preserved ([HTML])
//   - a dense rectangular grid of strings ([Flatten])
//   - pipe-joined plain text built from that grid ([PlainText])
//
// # Grid flattening
//
// [Flatten] walks the rows top to bottom keeping a per-column carry counter
// of rows still reserved by a rowspan from above. Each cell goes into the
// first column that is not reserved; a spanning cell's text is written only
// at its top-left position and every other position it covers is "". All
// grid rows have the width of the widest row.
//
// Overlapping or otherwise inconsistent spans are not repaired. The result
// for such input is whatever the placement rule above produces.
//
// # Detection
//
// When a format has no table markup, [Detect] looks for tables in text with
// two heuristics, tried in order:
//
//   - [DelimitedDetector] groups consecutive lines with at least two pipes
//     or a tab and splits them on pipe and tab runs
//   - [WhitespaceDetector] groups consecutive lines that split on runs of
//     two or more spaces; border-only lines end a block
//
// Both require at least two columns and two rows, see [Config].
package tables
