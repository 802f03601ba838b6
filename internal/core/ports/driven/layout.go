package driven

import "context"

// LayoutImage is an image produced by a layout engine.
type LayoutImage struct {
	// Name is how the Markdown currently references the image.
	// Empty when the Markdown only carries an <!-- image --> placeholder.
	Name string

	// Ext is the file extension including the dot (".png").
	Ext string

	// Data is the raw image bytes.
	Data []byte
}

// LayoutResult is the raw output of a layout-analysis engine.
type LayoutResult struct {
	Markdown string
	Images   []LayoutImage
}

// LayoutEngine converts Word/PDF/PPT files to Markdown with headings,
// tables and image references preserved.
type LayoutEngine interface {
	// Name identifies the engine in logs.
	Name() string

	// Convert runs layout analysis on one file. Network failures and
	// timeouts wrap domain.ErrTransient.
	Convert(ctx context.Context, path string) (*LayoutResult, error)
}
