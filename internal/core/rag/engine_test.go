package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-doc-assistant/internal/core/index"
	"ai-doc-assistant/pkg/apperror"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

type fakeSearcher struct {
	hits      []index.SearchResult
	err       error
	gotK      int
	gotExpr   string
	gotThresh float32
}

func (f *fakeSearcher) Search(_ context.Context, _ []float32, k int, expr string, threshold float32) ([]index.SearchResult, error) {
	f.gotK = k
	f.gotExpr = expr
	f.gotThresh = threshold
	return f.hits, f.err
}

type fakeCompleter struct {
	answers   []string
	calls     int
	prompts   []string
	gotImages [][]string
	err       error
}

func (f *fakeCompleter) Generate(_ context.Context, prompt string, images []string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.gotImages = append(f.gotImages, images)
	if f.err != nil {
		return "", f.err
	}
	answer := "answer"
	if f.calls < len(f.answers) {
		answer = f.answers[f.calls]
	}
	f.calls++
	return answer, nil
}

func newTestEngine(s *fakeSearcher, c *fakeCompleter) *Engine {
	return &Engine{
		embedder:  &fakeEmbedder{vector: []float32{0.1, 0.2}},
		store:     s,
		llm:       c,
		threshold: 0.1,
		topK:      10,
	}
}

func TestAnswer_EmptyQuery(t *testing.T) {
	e := newTestEngine(&fakeSearcher{}, &fakeCompleter{})
	_, err := e.Answer(context.Background(), NewSession(), Request{Query: "   "})
	if apperror.KindOf(err) != apperror.KindMalformed {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestAnswer_ConversationAccumulation(t *testing.T) {
	searcher := &fakeSearcher{hits: []index.SearchResult{{Text: "ctx", Score: 0.9}}}
	completer := &fakeCompleter{answers: []string{"A1", "A2"}}
	e := newTestEngine(searcher, completer)
	sess := NewSession()

	if _, err := e.Answer(context.Background(), sess, Request{Query: "Q1"}); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	if _, err := e.Answer(context.Background(), sess, Request{Query: "Q2"}); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	second := completer.prompts[1]
	if !strings.Contains(second, "query: Q1") || !strings.Contains(second, "answer: A1") {
		t.Fatalf("second prompt missing first exchange:\n%s", second)
	}

	sess.Clear()
	if _, err := e.Answer(context.Background(), sess, Request{Query: "Q3"}); err != nil {
		t.Fatalf("third answer: %v", err)
	}
	third := completer.prompts[2]
	if strings.Contains(third, "query: Q1") || strings.Contains(third, "query: Q2") {
		t.Fatalf("transcript survived Clear:\n%s", third)
	}
}

func TestAnswer_EmptyRetrievalStillCompletes(t *testing.T) {
	completer := &fakeCompleter{}
	e := newTestEngine(&fakeSearcher{hits: nil}, completer)

	resp, err := e.Answer(context.Background(), NewSession(), Request{Query: "anything"})
	if err != nil {
		t.Fatalf("empty retrieval must not fail: %v", err)
	}
	if completer.calls != 1 {
		t.Fatalf("completion was not called on empty retrieval")
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(resp.Sources))
	}
}

func TestAnswer_DefaultsAndFilterCompilation(t *testing.T) {
	searcher := &fakeSearcher{}
	e := newTestEngine(searcher, &fakeCompleter{})

	filter, err := index.DecodeFilter(map[string]any{"department": "finance"})
	if err != nil {
		t.Fatalf("decode filter: %v", err)
	}
	if _, err := e.Answer(context.Background(), NewSession(), Request{Query: "q", Filter: filter}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if searcher.gotK != 10 {
		t.Fatalf("expected default top-k 10, got %d", searcher.gotK)
	}
	if searcher.gotThresh != 0.1 {
		t.Fatalf("expected default threshold 0.1, got %v", searcher.gotThresh)
	}
	if want := `metadata["department"] == "finance"`; searcher.gotExpr != want {
		t.Fatalf("expr = %q, want %q", searcher.gotExpr, want)
	}

	override := float32(0.5)
	if _, err := e.Answer(context.Background(), NewSession(), Request{Query: "q", ScoreThreshold: &override, TopK: 3}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if searcher.gotK != 3 || searcher.gotThresh != 0.5 {
		t.Fatalf("overrides not applied: k=%d threshold=%v", searcher.gotK, searcher.gotThresh)
	}
}

func TestAnswer_ImagePassthrough(t *testing.T) {
	searcher := &fakeSearcher{hits: []index.SearchResult{
		{Text: "chart", Score: 0.9, Metadata: map[string]any{"image_base64": "aW1n"}},
		{Text: "plain", Score: 0.8},
	}}
	completer := &fakeCompleter{}
	e := newTestEngine(searcher, completer)

	if _, err := e.Answer(context.Background(), NewSession(), Request{Query: "q"}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if len(completer.gotImages[0]) != 1 || completer.gotImages[0][0] != "aW1n" {
		t.Fatalf("image payload not passed to completion: %v", completer.gotImages[0])
	}
	if strings.Contains(completer.prompts[0], "aW1n") {
		t.Fatalf("image payload leaked into the text prompt")
	}
}

func TestAnswer_PromptContainsSeparatorAndContext(t *testing.T) {
	searcher := &fakeSearcher{hits: []index.SearchResult{
		{Text: "first passage", Score: 0.9},
		{Text: "second passage", Score: 0.8},
	}}
	completer := &fakeCompleter{}
	e := newTestEngine(searcher, completer)

	if _, err := e.Answer(context.Background(), NewSession(), Request{Query: "q"}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	prompt := completer.prompts[0]
	if !strings.Contains(prompt, "first passage\n---\nsecond passage") {
		t.Fatalf("context block not joined with separator:\n%s", prompt)
	}
	if !strings.Contains(prompt, `separated by "---"`) {
		t.Fatalf("prompt instructions do not name the separator")
	}
}

func TestAnswer_CollaboratorFailureWrapped(t *testing.T) {
	e := &Engine{
		embedder:  &fakeEmbedder{err: errors.New("dial tcp: connection refused")},
		store:     &fakeSearcher{},
		llm:       &fakeCompleter{},
		threshold: 0.1,
		topK:      10,
	}
	_, err := e.Answer(context.Background(), NewSession(), Request{Query: "q"})
	if apperror.KindOf(err) != apperror.KindUnavailable {
		t.Fatalf("expected unavailable kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("underlying cause lost: %v", err)
	}
}

func TestAnswer_FailureDoesNotRecord(t *testing.T) {
	sess := NewSession()
	e := newTestEngine(&fakeSearcher{}, &fakeCompleter{err: errors.New("upstream 502")})
	if _, err := e.Answer(context.Background(), sess, Request{Query: "q"}); err == nil {
		t.Fatalf("expected completion error")
	}
	if sess.Len() != 0 {
		t.Fatalf("failed exchange must not be recorded")
	}
}
