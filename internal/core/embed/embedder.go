package embed

import (
	"context"
	"errors"

	"ai-doc-assistant/config"
	"ai-doc-assistant/pkg/apperror"
	"ai-doc-assistant/pkg/logger"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// batchSize caps inputs per embeddings request.
const batchSize = 100

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls the configured OpenAI-compatible embeddings endpoint.
type Client struct {
	key     string
	baseURL string
	model   string
}

func NewClient() *Client {
	cfg := config.Cfg.OpenAI
	return &Client{
		key:     cfg.Key,
		baseURL: cfg.BaseURL,
		model:   cfg.EmbeddingModel,
	}
}

// Embed returns one vector per input, batching requests in groups of 100.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	if c.key == "" {
		return nil, apperror.E(apperror.KindUnavailable, "embed", errors.New("missing api key"))
	}

	var all [][]float32
	for i := 0; i < len(inputs); i += batchSize {
		j := i + batchSize
		if j > len(inputs) {
			j = len(inputs)
		}
		batch := inputs[i:j]

		vectors, err := c.embedBatch(ctx, batch)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"model":       c.model,
				"batch_start": i,
				"batch_end":   j,
				"error":       err,
			}).Errorf("%v: embedding batch failed", config.ModuleOpenAI)
			return nil, apperror.E(apperror.KindUnavailable, "embed", err)
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// EmbedQuery embeds a single string and returns its vector.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, apperror.Errorf(apperror.KindMalformed, "embed", "text is empty")
	}
	vecs, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, apperror.Errorf(apperror.KindUnavailable, "embed", "no embedding returned")
	}
	return vecs[0], nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	opts := []option.RequestOption{option.WithAPIKey(c.key)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := openai.NewClient(opts...)

	reqBody := embeddingRequest{Model: c.model, Input: batch}
	var out embeddingResponse
	if err := client.Post(ctx, "/embeddings", reqBody, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, errors.New(out.Error.Message)
	}
	// place by the response's index field; compatible backends may reorder
	vectors := make([][]float32, len(out.Data))
	for i := range out.Data {
		src := out.Data[i].Embedding
		vec := make([]float32, len(src))
		for k := range src {
			vec[k] = float32(src[k])
		}
		idx := out.Data[i].Index
		if idx < 0 || idx >= len(vectors) {
			idx = i
		}
		vectors[idx] = vec
	}
	return vectors, nil
}
