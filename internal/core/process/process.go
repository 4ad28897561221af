package process

import (
	"context"
	"strings"
	"unicode"
)

// Element is the shape the document-processing step hands back: one text
// piece plus its descriptive metadata (content type, page number, captions,
// optional base64 image payload). This core consumes elements; it does not
// own the parsing that produces them.
type Element struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Partitioner turns a local file into elements.
type Partitioner interface {
	Partition(ctx context.Context, localPath string) ([]Element, error)
}

// sanitizeText removes BOM and non-printable runes, keeping common
// whitespace.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\uFEFF' { // BOM
			continue
		}
		if r == unicode.ReplacementChar { // U+FFFD
			continue
		}
		if r == '\n' || r == '\t' || r == '\r' {
			// keep
		} else if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
