package index

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"ai-doc-assistant/config"
	"ai-doc-assistant/pkg/apperror"
	"ai-doc-assistant/pkg/logger"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	milvusentity "github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	fieldID       = "id"
	fieldText     = "text"
	fieldMetadata = "metadata"
	fieldVector   = "embedding"

	// probeText is embedded once to learn the model's output dimension when
	// the collection has to be created.
	probeText = "test"

	maxTextLength = 65535
	maxIDLength   = 64
)

// Embedder is the single capability the store needs from the embedding
// backend: probing the vector dimension at collection-creation time.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Point is one persisted unit: content-addressed id, embedding vector and the
// payload that comes back with search hits.
type Point struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// SearchResult is a scored payload returned by Search, ordered by descending
// score.
type SearchResult struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// Info describes the collection for observability endpoints.
type Info struct {
	Name        string `json:"name"`
	VectorCount int64  `json:"vector_count"`
	PointCount  int64  `json:"point_count"`
	Status      string `json:"status"`
}

// Store owns the Milvus collection lifecycle, upserts and filtered
// similarity search. The embedding dimension is learned once via the probe
// and cached for the store's lifetime.
type Store struct {
	address    string
	collection string
	metric     milvusentity.MetricType
	hnswM      int
	hnswEfCon  int
	hnswEf     int
	embedder   Embedder

	mu  sync.Mutex
	dim int
}

// NewStore builds a store from the milvus config section.
func NewStore(embedder Embedder) *Store {
	cfg := config.Cfg.Milvus
	collection := cfg.Collection
	if collection == "" {
		collection = "uploaded_documents"
	}
	return &Store{
		address:    cfg.Address,
		collection: collection,
		metric:     milvusentity.MetricType(cfg.MetricType),
		hnswM:      cfg.IndexHNSWConfig.M,
		hnswEfCon:  cfg.IndexHNSWConfig.EfConstruction,
		hnswEf:     cfg.IndexHNSWConfig.Ef,
		embedder:   embedder,
	}
}

// Collection returns the collection name the store operates on.
func (s *Store) Collection() string { return s.collection }

func (s *Store) connect(ctx context.Context) (milvusclient.Client, error) {
	cli, err := milvusclient.NewClient(ctx, milvusclient.Config{Address: s.address})
	if err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "index.connect", err)
	}
	return cli, nil
}

// vectorDim returns the cached embedding dimension, probing the embedding
// backend once if it is not known yet.
func (s *Store) vectorDim(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim > 0 {
		return s.dim, nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, probeText)
	if err != nil {
		return 0, apperror.E(apperror.KindUnavailable, "index.probe", err)
	}
	if len(vec) == 0 {
		return 0, apperror.Errorf(apperror.KindUnavailable, "index.probe", "embedding backend returned an empty vector")
	}
	s.dim = len(vec)
	return s.dim, nil
}

// EnsureCollection creates the collection, its HNSW index and loads it if it
// does not exist yet. Idempotent. Failures are logged and reported as false
// so callers can surface a graceful error instead of a transport one.
func (s *Store) EnsureCollection(ctx context.Context) bool {
	cli, err := s.connect(ctx)
	if err != nil {
		logger.Error(err, "%v: ensure collection: connect failed", config.ModuleMilvus)
		return false
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, s.collection)
	if err != nil {
		logger.Error(err, "%v: ensure collection: lookup failed", config.ModuleMilvus)
		return false
	}
	if exists {
		return true
	}

	dim, err := s.vectorDim(ctx)
	if err != nil {
		logger.Error(err, "%v: ensure collection: dimension probe failed", config.ModuleMilvus)
		return false
	}

	schema := milvusentity.NewSchema().WithName(s.collection).WithDescription("document chunks")
	schema.WithField(milvusentity.NewField().WithName(fieldID).WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxIDLength).WithIsPrimaryKey(true))
	schema.WithField(milvusentity.NewField().WithName(fieldText).WithDataType(milvusentity.FieldTypeVarChar).WithMaxLength(maxTextLength))
	schema.WithField(milvusentity.NewField().WithName(fieldMetadata).WithDataType(milvusentity.FieldTypeJSON))
	schema.WithField(milvusentity.NewField().WithName(fieldVector).WithDataType(milvusentity.FieldTypeFloatVector).WithDim(int64(dim)))

	if err := cli.CreateCollection(ctx, schema, 2); err != nil {
		logger.Error(err, "%v: create collection %s failed", config.ModuleMilvus, s.collection)
		return false
	}

	idx, err := milvusentity.NewIndexHNSW(s.metric, s.hnswM, s.hnswEfCon)
	if err != nil {
		logger.Error(err, "%v: build hnsw index params failed", config.ModuleMilvus)
		return false
	}
	if err := cli.CreateIndex(ctx, s.collection, fieldVector, idx, false); err != nil {
		logger.Error(err, "%v: create index on %s failed", config.ModuleMilvus, s.collection)
		return false
	}
	if err := cli.LoadCollection(ctx, s.collection, false); err != nil {
		logger.Error(err, "%v: load collection %s failed", config.ModuleMilvus, s.collection)
		return false
	}

	logger.Info("%v: created collection %s (dim=%d)", config.ModuleMilvus, s.collection, dim)
	return true
}

// Upsert writes points into the collection, overwriting any existing point
// with the same id. Points with empty or whitespace-only text are skipped and
// counted. Returns how many points were stored and skipped; partial success
// is reported through those counts alongside the error.
func (s *Store) Upsert(ctx context.Context, points []Point) (stored int, skipped int, err error) {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if isBlank(p.Text) {
			skipped++
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return 0, skipped, nil
	}

	if !s.EnsureCollection(ctx) {
		return 0, skipped, apperror.Errorf(apperror.KindUnavailable, "index.upsert", "collection %s is not available", s.collection)
	}

	dim, err := s.vectorDim(ctx)
	if err != nil {
		return 0, skipped, err
	}

	cli, err := s.connect(ctx)
	if err != nil {
		return 0, skipped, err
	}
	defer cli.Close()

	ids := make([]string, len(kept))
	texts := make([]string, len(kept))
	metas := make([][]byte, len(kept))
	vectors := make([][]float32, len(kept))
	for i, p := range kept {
		ids[i] = p.ID
		texts[i] = p.Text
		vectors[i] = p.Vector
		raw, mErr := json.Marshal(p.Metadata)
		if mErr != nil {
			raw = []byte("{}")
		}
		metas[i] = raw
	}

	colID := milvusentity.NewColumnVarChar(fieldID, ids)
	colText := milvusentity.NewColumnVarChar(fieldText, texts)
	colMeta := milvusentity.NewColumnJSONBytes(fieldMetadata, metas)
	colVec := milvusentity.NewColumnFloatVector(fieldVector, dim, vectors)

	if _, err := cli.Upsert(ctx, s.collection, "", colID, colText, colMeta, colVec); err != nil {
		return 0, skipped, apperror.E(apperror.KindUnavailable, "index.upsert", err)
	}
	return len(kept), skipped, nil
}

// Search runs a filtered top-k similarity search and returns results with
// score >= threshold, ordered by descending score. A missing or empty
// collection yields an empty slice, not an error.
func (s *Store) Search(ctx context.Context, vector []float32, k int, expr string, threshold float32) ([]SearchResult, error) {
	if k <= 0 {
		k = config.Cfg.Milvus.TopK
	}
	if len(vector) == 0 {
		return []SearchResult{}, nil
	}

	cli, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "index.search", err)
	}
	if !exists {
		return []SearchResult{}, nil
	}
	if err := cli.LoadCollection(ctx, s.collection, false); err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "index.search", err)
	}

	searchParam, err := milvusentity.NewIndexHNSWSearchParam(s.hnswEf)
	if err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "index.search", err)
	}

	results, err := cli.Search(
		ctx,
		s.collection,
		nil, // partitions
		expr,
		[]string{fieldID, fieldText, fieldMetadata},
		[]milvusentity.Vector{milvusentity.FloatVector(vector)},
		fieldVector,
		s.metric,
		k,
		searchParam,
	)
	if err != nil {
		logger.Error(err, "%v: search failed (expr=%q)", config.ModuleMilvus, expr)
		return nil, apperror.E(apperror.KindUnavailable, "index.search", err)
	}
	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	hits := parseHits(results[0].ResultCount, results[0].IDs, results[0].Fields, results[0].Scores)
	return rankHits(hits, k, threshold), nil
}

func parseHits(count int, idCol milvusentity.Column, fields []milvusentity.Column, scores []float32) []SearchResult {
	hits := make([]SearchResult, 0, count)
	for i := 0; i < count; i++ {
		var h SearchResult
		if ids, ok := idCol.(*milvusentity.ColumnVarChar); ok {
			h.ID = ids.Data()[i]
		}
		if i < len(scores) {
			h.Score = scores[i]
		}
		for _, field := range fields {
			switch col := field.(type) {
			case *milvusentity.ColumnVarChar:
				if col.Name() == fieldText {
					h.Text = col.Data()[i]
				}
			case *milvusentity.ColumnJSONBytes:
				if col.Name() == fieldMetadata {
					var meta map[string]any
					if err := json.Unmarshal(col.Data()[i], &meta); err == nil {
						h.Metadata = meta
					}
				}
			}
		}
		hits = append(hits, h)
	}
	return hits
}

// rankHits applies the score floor, orders by descending score and truncates
// to k. Kept separate from the network path so threshold monotonicity and
// ordering are unit-testable.
func rankHits(hits []SearchResult, k int, threshold float32) []SearchResult {
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Drop deletes the collection. Idempotent: returns true whether or not the
// collection existed, false only when the backend call itself fails.
func (s *Store) Drop(ctx context.Context) bool {
	cli, err := s.connect(ctx)
	if err != nil {
		logger.Error(err, "%v: drop collection: connect failed", config.ModuleMilvus)
		return false
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, s.collection)
	if err != nil {
		logger.Error(err, "%v: drop collection: lookup failed", config.ModuleMilvus)
		return false
	}
	if !exists {
		return true
	}
	if err := cli.DropCollection(ctx, s.collection); err != nil {
		logger.Error(err, "%v: drop collection %s failed", config.ModuleMilvus, s.collection)
		return false
	}
	logger.Info("%v: dropped collection %s", config.ModuleMilvus, s.collection)
	return true
}

// Describe reports collection name, counts and load status.
func (s *Store) Describe(ctx context.Context) (Info, error) {
	cli, err := s.connect(ctx)
	if err != nil {
		return Info{}, err
	}
	defer cli.Close()

	exists, err := cli.HasCollection(ctx, s.collection)
	if err != nil {
		return Info{}, apperror.E(apperror.KindUnavailable, "index.describe", err)
	}
	if !exists {
		return Info{}, apperror.Errorf(apperror.KindNotFound, "index.describe", "collection %s does not exist", s.collection)
	}

	info := Info{Name: s.collection, Status: "unloaded"}

	stats, err := cli.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		return Info{}, apperror.E(apperror.KindUnavailable, "index.describe", err)
	}
	if raw, ok := stats["row_count"]; ok {
		if n, pErr := strconv.ParseInt(raw, 10, 64); pErr == nil {
			info.PointCount = n
			info.VectorCount = n
		}
	}

	state, err := cli.GetLoadState(ctx, s.collection, nil)
	if err == nil && state == milvusentity.LoadStateLoaded {
		info.Status = "ready"
	}
	return info, nil
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
