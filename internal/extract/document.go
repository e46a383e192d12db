package extract

import "strings"

// Media types with special handling.
const (
	MediaTypePDF     = "application/pdf"
	DefaultMediaType = "image/jpeg"
)

// BlockKind is the kind of content block a document is sent as.
type BlockKind string

const (
	BlockDocument BlockKind = "document"
	BlockImage    BlockKind = "image"
)

// Document is an uploaded page, base64 encoded for transport.
type Document struct {
	Data      string `json:"base64Data"`
	MediaType string `json:"mediaType"`
}

// Kind returns BlockDocument for PDFs and BlockImage for everything else.
func (d Document) Kind() BlockKind {
	if d.MediaType == MediaTypePDF {
		return BlockDocument
	}
	return BlockImage
}

// Result is the structured recipe pulled out of a document.
type Result struct {
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
}

// Empty returns the result that stands for "no recipe".
func Empty() Result {
	return Result{Title: "", Ingredients: []string{}}
}

// Found reports whether a recipe title was extracted.
func (r Result) Found() bool {
	return strings.TrimSpace(r.Title) != ""
}
