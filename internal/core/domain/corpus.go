package domain

// Viewer paging defaults.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// ChunkPage is one page of a document's chunks for the corpus viewer.
type ChunkPage struct {
	Document DocumentInfo `json:"document"`
	Offset   int          `json:"offset"`
	Limit    int          `json:"limit"`
	Total    int          `json:"total"`
	HasMore  bool         `json:"has_more"`
	Chunks   []Chunk      `json:"chunks"`
}

// PageRequest selects a page of chunks. When Anchor is set the page is
// centred on that chunk index and Offset is ignored.
type PageRequest struct {
	Offset int
	Limit  int
	Anchor *int
}

// HeadingRef is one distinct heading path with the first chunk under it.
type HeadingRef struct {
	Path       []string `json:"path"`
	Title      string   `json:"title"`
	Level      int      `json:"level"`
	ChunkIndex int      `json:"chunk_index"`
}

// DocumentMeta is the heading tree of a document.
type DocumentMeta struct {
	Document DocumentInfo `json:"document"`
	Headings []HeadingRef `json:"headings"`
}
