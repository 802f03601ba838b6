// Package parsers holds the closed set of document parser variants and the
// registry that dispatches a source file to its variant by format.
//
// Variants:
//
//   - layout: Word/PDF/PPT through a layout-analysis engine
//   - excel: workbooks to one Markdown table per non-empty sheet
//   - markdown: Markdown files taken as-is
//   - html: saved web pages, headings preserved
//
// Adding a format means adding a domain.Format value and a variant here.
package parsers
