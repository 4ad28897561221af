package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/core/chunk"
	"ai-doc-assistant/internal/core/embed"
	"ai-doc-assistant/internal/core/index"
	"ai-doc-assistant/internal/core/process"
	"ai-doc-assistant/internal/database"
	"ai-doc-assistant/pkg/logger"
)

// Embedder batches chunk texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Upserter writes points into the vector index.
type Upserter interface {
	Upsert(ctx context.Context, points []index.Point) (stored int, skipped int, err error)
}

// Service runs the ingestion pipeline for uploaded documents.
type Service struct {
	partitioner process.Partitioner
	embedder    Embedder
	store       Upserter
}

func NewService(embedder *embed.Client, store *index.Store) *Service {
	return &Service{
		partitioner: process.ForConfig(),
		embedder:    embedder,
		store:       store,
	}
}

// Run executes the pipeline for one document: fetch the stored file,
// partition it into elements, merge the user metadata, derive content ids,
// embed and upsert. The outcome (status plus stored/skipped counts) lands on
// the document row. Designed to be launched fire-and-forget from the API.
func (s *Service) Run(docID int64) {
	db, err := database.GetDB()
	if err != nil {
		logger.Error(err, "%v: db unavailable", config.ModuleIngest)
		return
	}

	doc, err := GetDocumentByID(db, docID)
	if err != nil {
		logger.Error(err, "%v: get document %d failed", config.ModuleIngest, docID)
		return
	}
	if doc.FilePath == nil {
		logger.Errorf("%v: document %d has no stored file", config.ModuleIngest, docID)
		return
	}
	logger.WithFields(map[string]interface{}{
		"doc_id":    docID,
		"file_path": *doc.FilePath,
	}).Info("ingest: start")

	_ = UpdateDocumentStatus(db, docID, "processing")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tmpPath, cleanup, err := fetchToLocalTemp(ctx, *doc.FilePath)
	if err != nil {
		logger.Error(err, "%v: fetch file failed", config.ModuleIngest)
		_ = UpdateDocumentStatus(db, docID, "failed")
		return
	}
	defer cleanup()

	elements, err := s.partitioner.Partition(ctx, tmpPath)
	if err != nil {
		logger.Error(err, "%v: partition failed", config.ModuleIngest)
		_ = UpdateDocumentStatus(db, docID, "failed")
		return
	}

	custom := decodeCustomMetadata(doc.Metadata)
	points, texts, skipped := buildPoints(elements, custom)
	if len(points) == 0 {
		logger.Errorf("%v: document %d produced no indexable chunks", config.ModuleIngest, docID)
		_ = RecordSummary(db, docID, "failed", 0, skipped)
		return
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		logger.Error(err, "%v: embedding failed", config.ModuleIngest)
		_ = UpdateDocumentStatus(db, docID, "failed")
		return
	}
	if len(vectors) != len(points) {
		logger.Errorf("%v: embedding count mismatch: %d vectors for %d chunks", config.ModuleIngest, len(vectors), len(points))
		_ = UpdateDocumentStatus(db, docID, "failed")
		return
	}
	for i := range points {
		points[i].Vector = vectors[i]
	}

	stored, storeSkipped, err := s.store.Upsert(ctx, points)
	skipped += storeSkipped
	if err != nil {
		logger.Error(err, "%v: upsert failed (stored=%d skipped=%d)", config.ModuleIngest, stored, skipped)
		_ = RecordSummary(db, docID, "failed", stored, skipped)
		return
	}

	if err := RecordSummary(db, docID, "ready", stored, skipped); err != nil {
		logger.Error(err, "%v: record summary failed", config.ModuleIngest)
		return
	}
	logger.WithFields(map[string]interface{}{
		"doc_id":  docID,
		"stored":  stored,
		"skipped": skipped,
	}).Info("ingest: done")
}

// buildPoints turns processed elements into index points: user metadata is
// merged over each element's own, empty texts are skipped and counted, and
// the content-addressed id is derived so re-ingesting identical content
// overwrites instead of duplicating.
func buildPoints(elements []process.Element, custom map[string]any) (points []index.Point, texts []string, skipped int) {
	for _, el := range elements {
		if strings.TrimSpace(el.Text) == "" {
			skipped++
			continue
		}
		meta := make(map[string]any, len(el.Metadata)+len(custom))
		for k, v := range el.Metadata {
			meta[k] = v
		}
		for k, v := range custom {
			meta[k] = v
		}
		points = append(points, index.Point{
			ID:       chunk.ID(el.Text, meta),
			Text:     el.Text,
			Metadata: meta,
		})
		texts = append(texts, el.Text)
	}
	return points, texts, skipped
}

func decodeCustomMetadata(raw *string) map[string]any {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(*raw), &meta); err != nil {
		logger.Warn("%v: invalid stored metadata, ignoring: %v", config.ModuleIngest, err)
		return nil
	}
	return meta
}
