package process

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/pkg/apperror"
)

// HTTPClient calls an unstructured-style partition service: the file goes up
// as multipart form data and a flat JSON array of typed elements comes back.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClient() *HTTPClient {
	cfg := config.Cfg.Processing
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// wireElement mirrors the service's response shape; the element type comes
// back as a sibling of text rather than inside metadata.
type wireElement struct {
	Type     string         `json:"type"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

func (c *HTTPClient) Partition(ctx context.Context, localPath string) ([]Element, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, apperror.E(apperror.KindNotFound, "process.partition", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(localPath))
	if err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "process.partition", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "process.partition", err)
	}
	if err := mw.Close(); err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "process.partition", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "process.partition", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "process.partition", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, apperror.Errorf(apperror.KindUnavailable, "process.partition",
			"partition service returned %s", resp.Status)
	}

	var wire []wireElement
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, apperror.E(apperror.KindUnavailable, "process.partition", err)
	}

	elements := make([]Element, 0, len(wire))
	for _, w := range wire {
		meta := w.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		if w.Type != "" {
			meta["content_type"] = w.Type
		}
		elements = append(elements, Element{
			Text:     sanitizeText(w.Text),
			Metadata: meta,
		})
	}
	if len(elements) == 0 {
		return nil, apperror.Errorf(apperror.KindMalformed, "process.partition",
			"no content could be extracted from %s", filepath.Base(localPath))
	}
	return elements, nil
}

// ForConfig picks the partitioner: the remote service when an endpoint is
// configured, otherwise the local PDF fallback.
func ForConfig() Partitioner {
	if config.Cfg.Processing.Endpoint != "" {
		return NewHTTPClient()
	}
	return NewPDFPartitioner()
}
