package domain

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of source formats the parser understands.
type Format string

// Supported formats.
const (
	// FormatWord covers .docx and legacy .doc files.
	FormatWord Format = "word"

	// FormatPDF covers .pdf files.
	FormatPDF Format = "pdf"

	// FormatPPT covers .pptx and legacy .ppt files.
	FormatPPT Format = "ppt"

	// FormatExcel covers .xlsx, .xlsm and .xls workbooks.
	FormatExcel Format = "excel"

	// FormatMarkdown covers Markdown files placed directly in the source directory.
	FormatMarkdown Format = "markdown"

	// FormatHTML covers saved web pages.
	FormatHTML Format = "html"

	// FormatUnknown is returned for extensions no parser handles.
	FormatUnknown Format = ""
)

var extensionFormats = map[string]Format{
	".docx": FormatWord,
	".doc":  FormatWord,
	".pdf":  FormatPDF,
	".pptx": FormatPPT,
	".ppt":  FormatPPT,
	".xlsx": FormatExcel,
	".xlsm": FormatExcel,
	".xls":  FormatExcel,
	".md":   FormatMarkdown,
	".html": FormatHTML,
	".htm":  FormatHTML,
}

// FormatFromPath classifies a file by its extension (case-insensitive).
func FormatFromPath(path string) Format {
	return extensionFormats[strings.ToLower(filepath.Ext(path))]
}

// IsValid returns true if the format is recognised.
func (f Format) IsValid() bool {
	switch f {
	case FormatWord, FormatPDF, FormatPPT, FormatExcel, FormatMarkdown, FormatHTML:
		return true
	default:
		return false
	}
}

// UsesLayoutEngine reports whether the format is converted by a layout-analysis engine.
func (f Format) UsesLayoutEngine() bool {
	return f == FormatWord || f == FormatPDF || f == FormatPPT
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}
