package assemble

import (
	"fmt"
	"strings"
)

// Separator joins retrieved passages in the context block. The prompt
// template's instructions reference the same separator so the model can tell
// passages apart.
const Separator = "\n---\n"

// Metadata keys produced by the document-processing step.
const (
	keyContentType = "content_type"
	keyPageNumber  = "page_number"
	keyCaption     = "caption"
	keyImage       = "image_base64"
)

var markerFlags = []struct {
	key string
	tag string
}{
	{"contains_table", "[HAS_TABLE]"},
	{"contains_figure", "[HAS_FIGURE]"},
	{"contains_picture", "[HAS_PICTURE]"},
}

var captionedTypes = map[string]bool{
	"table":   true,
	"figure":  true,
	"picture": true,
	"image":   true,
}

// Result is one ranked retrieval hit handed to the assembler.
type Result struct {
	Text     string
	Metadata map[string]any
	Score    float32
}

// Build concatenates ranked results into the grounding context. Each segment
// is the raw chunk text followed by annotation lines derived from metadata:
// a [CONTENT_TYPE - Page N] tag, a caption line for table/figure/picture
// content, and marker tags for contains-* flags. Base64 image payloads are
// never inlined; they are returned as a side list for the multimodal
// completion call.
func Build(results []Result) (context string, imagesBase64 []string) {
	segments := make([]string, 0, len(results))
	for _, r := range results {
		segments = append(segments, segment(r))
		if img, ok := r.Metadata[keyImage].(string); ok && img != "" {
			imagesBase64 = append(imagesBase64, img)
		}
	}
	return strings.Join(segments, Separator), imagesBase64
}

func segment(r Result) string {
	var b strings.Builder
	b.WriteString(r.Text)

	contentType, _ := r.Metadata[keyContentType].(string)
	page, hasPage := pageNumber(r.Metadata)

	if contentType != "" {
		if hasPage {
			fmt.Fprintf(&b, "\n[%s - Page %d]", strings.ToUpper(contentType), page)
		} else {
			fmt.Fprintf(&b, "\n[%s]", strings.ToUpper(contentType))
		}
	}

	if captionedTypes[strings.ToLower(contentType)] {
		if caption, ok := r.Metadata[keyCaption].(string); ok && caption != "" {
			fmt.Fprintf(&b, "\nCaption: %s", caption)
		}
	}

	for _, flag := range markerFlags {
		if v, ok := r.Metadata[flag.key].(bool); ok && v {
			b.WriteString("\n" + flag.tag)
		}
	}
	return b.String()
}

func pageNumber(meta map[string]any) (int, bool) {
	switch v := meta[keyPageNumber].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
