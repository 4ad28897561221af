package process

import (
	"context"
	"strings"

	"ai-doc-assistant/config"
	"ai-doc-assistant/pkg/apperror"
	"ai-doc-assistant/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// PDFPartitioner is the local fallback used when no partition service is
// configured. It extracts plain text per page and splits pages into
// overlapping fixed-size elements. Tables, captions and images require the
// remote service; this path only yields text elements.
type PDFPartitioner struct {
	chunkChars   int
	overlapChars int
}

func NewPDFPartitioner() *PDFPartitioner {
	cfg := config.Cfg.Processing
	chunkChars := cfg.ChunkChars
	if chunkChars <= 0 {
		chunkChars = 500
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	return &PDFPartitioner{chunkChars: chunkChars, overlapChars: overlap}
}

func (p *PDFPartitioner) Partition(ctx context.Context, localPath string) ([]Element, error) {
	f, reader, err := pdf.Open(localPath)
	if err != nil {
		return nil, apperror.E(apperror.KindMalformed, "process.pdf", err)
	}
	defer f.Close()

	var elements []Element
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, apperror.E(apperror.KindUnavailable, "process.pdf", err)
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("%v: page %d text extraction failed: %v", config.ModuleProcess, pageNum, err)
			continue
		}
		text = sanitizeText(text)
		if text == "" {
			continue
		}
		for _, piece := range p.split(text) {
			elements = append(elements, Element{
				Text: piece,
				Metadata: map[string]any{
					"content_type": "text",
					"page_number":  pageNum,
				},
			})
		}
	}
	if len(elements) == 0 {
		return nil, apperror.Errorf(apperror.KindMalformed, "process.pdf", "no text content in %s", localPath)
	}
	return elements, nil
}

// split slices page text into ~chunkChars pieces with overlap, advancing by
// runes so multi-byte characters never get cut.
func (p *PDFPartitioner) split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := start + p.chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
		next := end - p.overlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return pieces
}
