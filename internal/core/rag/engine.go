package rag

import (
	"context"
	"strings"

	"ai-doc-assistant/config"
	"ai-doc-assistant/internal/core/assemble"
	"ai-doc-assistant/internal/core/index"
	"ai-doc-assistant/pkg/apperror"
	"ai-doc-assistant/pkg/logger"
)

// promptTemplate grounds the completion call. The "---" in instruction 5 is
// the same separator the assembler joins passages with.
const promptTemplate = `<system>
You are an expert document analysis assistant. Your role is to provide accurate, helpful answers based solely on the provided document context and conversation history.
</system>

<instructions>
1. Answer questions using the information provided in this <conversation_history> and pieces of <context> to answer the question at the end.
2. If the <context> doesn't provide enough information, just say that you don't know, don't try to make up an answer.
3. Pay attention to the <context> of the question rather than just looking for similar keywords in the corpus.
4. Rerank the following context given the query as question before answering. Each context segment is separated by "---".
5. Generate the answer in the same language as the <user_question>, and do not include the tags in the answer.
</instructions>

<context>
{context}
</context>

<conversation_history>
{history}
</conversation_history>

<user_question>
{question}
</user_question>

<response_format>
Provide a helpful answer based on the <context> above. If the <context> contains relevant information, use it to answer the <user_question>. If you need to reference specific information, mention it explicitly.
</response_format>
`

// Embedder turns the query text into a vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs the filtered, thresholded similarity search.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, expr string, threshold float32) ([]index.SearchResult, error)
}

// Completer calls the completion backend with the rendered prompt and any
// retrieved image payloads.
type Completer interface {
	Generate(ctx context.Context, prompt string, imagesBase64 []string) (string, error)
}

// Request is one grounded query.
type Request struct {
	Query          string
	Filter         index.Filter
	ScoreThreshold *float32 // nil uses the configured default
	TopK           int      // <=0 uses the configured default
}

// Response carries the answer and the ranked source chunks it was grounded on.
type Response struct {
	Answer  string               `json:"answer"`
	Sources []index.SearchResult `json:"sources"`
}

// Engine composes embedding, retrieval, context assembly and completion into
// the single grounded-query operation.
type Engine struct {
	embedder  Embedder
	store     Searcher
	llm       Completer
	threshold float32
	topK      int
}

func NewEngine(embedder Embedder, store Searcher, llm Completer) *Engine {
	return &Engine{
		embedder:  embedder,
		store:     store,
		llm:       llm,
		threshold: config.Cfg.Milvus.ScoreThreshold,
		topK:      config.Cfg.Milvus.TopK,
	}
}

// Answer runs the full grounded-query flow: embed the query, search with the
// compiled filter, assemble context and image payloads, render the prompt
// with the session transcript, call the completion backend, record the
// exchange and return the answer with its sources. An empty retrieval is not
// an error; the completion still runs so the model can say it doesn't know.
func (e *Engine) Answer(ctx context.Context, sess *Session, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return Response{}, apperror.Errorf(apperror.KindMalformed, "rag.answer", "query is empty")
	}

	threshold := e.threshold
	if req.ScoreThreshold != nil {
		threshold = *req.ScoreThreshold
	}
	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}

	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return Response{}, wrap("rag.answer", err)
	}

	expr := index.Compile(req.Filter)
	hits, err := e.store.Search(ctx, vector, topK, expr, threshold)
	if err != nil {
		return Response{}, wrap("rag.answer", err)
	}

	results := make([]assemble.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, assemble.Result{Text: h.Text, Metadata: h.Metadata, Score: h.Score})
	}
	contextBlock, images := assemble.Build(results)

	prompt := renderPrompt(sess.Transcript(), contextBlock, query)

	answer, err := e.llm.Generate(ctx, prompt, images)
	if err != nil {
		return Response{}, wrap("rag.answer", err)
	}

	sess.Record(query, answer)

	logger.Debug("%v: answered query with %d sources (%d images)", config.ModuleChat, len(hits), len(images))
	return Response{Answer: answer, Sources: hits}, nil
}

func renderPrompt(history, contextBlock, question string) string {
	return strings.NewReplacer(
		"{history}", history,
		"{context}", contextBlock,
		"{question}", question,
	).Replace(promptTemplate)
}

// wrap ensures every failure leaves the orchestrator as a kinded domain
// error; errors that already carry a kind pass through unchanged.
func wrap(op string, err error) error {
	if apperror.KindOf(err) != 0 {
		return err
	}
	return apperror.E(apperror.KindUnavailable, op, err)
}
