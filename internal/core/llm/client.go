package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-doc-assistant/config"
	"ai-doc-assistant/pkg/apperror"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// contentPart is one element of a multimodal user message.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls the configured OpenAI-compatible chat completion endpoint.
type Client struct {
	key          string
	baseURL      string
	model        string
	systemPrompt string
	temperature  float32
	timeout      time.Duration
}

func NewClient() *Client {
	cfg := config.Cfg.OpenAI
	return &Client{
		key:          cfg.Key,
		baseURL:      cfg.BaseURL,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		timeout:      time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// Generate sends the prompt, plus any base64-encoded images as separate
// multimodal content parts, and returns the completion text.
func (c *Client) Generate(ctx context.Context, prompt string, imagesBase64 []string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]chatMessage, 0, 2)
	if c.systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.systemPrompt})
	}

	if len(imagesBase64) == 0 {
		messages = append(messages, chatMessage{Role: "user", Content: prompt})
	} else {
		parts := make([]contentPart, 0, 1+len(imagesBase64))
		parts = append(parts, contentPart{Type: "text", Text: prompt})
		for _, img := range imagesBase64 {
			parts = append(parts, contentPart{
				Type:     "image_url",
				ImageURL: &imageURL{URL: fmt.Sprintf("data:image/jpeg;base64,%s", img)},
			})
		}
		messages = append(messages, chatMessage{Role: "user", Content: parts})
	}

	opts := []option.RequestOption{option.WithAPIKey(c.key)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := openai.NewClient(opts...)

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	var out chatResponse
	if err := client.Post(ctx, "/chat/completions", req, &out); err != nil {
		return "", apperror.E(apperror.KindUnavailable, "llm.generate", err)
	}
	if out.Error != nil {
		return "", apperror.Errorf(apperror.KindUnavailable, "llm.generate", "%s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", apperror.Errorf(apperror.KindUnavailable, "llm.generate", "no choices returned")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
