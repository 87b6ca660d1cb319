// Package rag implements retrieval-augmented generation over a vector store.
//
// A System retrieves the top-k documents for a question, assembles a numbered
// context block, and produces an answer either through a configured LLM
// provider or as a templated excerpt. Answers are tagged variants so callers
// can branch on how the answer was produced instead of inspecting its text.
package rag

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/recallmem/recallmem-go/pkg/core"
	"github.com/recallmem/recallmem-go/pkg/embedder"
	"github.com/recallmem/recallmem-go/pkg/llm"
	"github.com/recallmem/recallmem-go/pkg/vectorstore"
)

const (
	// DefaultTopK is the retrieval depth used when QueryOptions.K is zero.
	DefaultTopK = 5

	// excerptLimit bounds the context excerpt used in templated answers.
	excerptLimit = 500
)

// AnswerKind identifies how an answer was produced.
type AnswerKind int

const (
	// AnswerNoResults means retrieval returned nothing.
	AnswerNoResults AnswerKind = iota

	// AnswerGenerated means the configured LLM produced the text.
	AnswerGenerated

	// AnswerExcerpt means no LLM is configured and the text is a context
	// excerpt.
	AnswerExcerpt

	// AnswerDegraded means the LLM call failed and the text is a context
	// excerpt. Reason carries the failure.
	AnswerDegraded
)

// String returns a short label for the kind.
func (k AnswerKind) String() string {
	switch k {
	case AnswerGenerated:
		return "generated"
	case AnswerExcerpt:
		return "excerpt"
	case AnswerDegraded:
		return "degraded"
	default:
		return "no_results"
	}
}

// Answer is a tagged answer variant.
type Answer struct {
	// Kind identifies how the answer was produced.
	Kind AnswerKind

	// Text is the answer text. For AnswerNoResults it is a fixed
	// no-information message; for AnswerExcerpt and AnswerDegraded it is a
	// context excerpt.
	Text string

	// Reason carries the generation failure for AnswerDegraded; empty
	// otherwise.
	Reason string
}

// Result is the outcome of a single query.
type Result struct {
	// Question is the original question.
	Question string

	// Answer is the produced answer.
	Answer Answer

	// Context is the numbered context block built from the retrieved
	// documents. Empty when nothing was retrieved.
	Context string

	// RelevantDocuments are the retrieval hits backing the answer, sorted
	// by score descending.
	RelevantDocuments []vectorstore.SearchResult

	// Confidence is the retrieval confidence in [0, 1]. Zero when nothing
	// was retrieved.
	Confidence float64
}

// QueryOptions controls a single query.
type QueryOptions struct {
	// K is the retrieval depth. Defaults to DefaultTopK.
	K int

	// Filter keeps only documents whose metadata contains every entry.
	Filter map[string]interface{}

	// Rerank blends keyword overlap into the vector ranking before
	// truncation. Enabled by default through DefaultQueryOptions.
	Rerank bool
}

// DefaultQueryOptions returns the options used when none are supplied.
func DefaultQueryOptions() *QueryOptions {
	return &QueryOptions{K: DefaultTopK, Rerank: true}
}

// System orchestrates a vector store, an embedder, and an optional LLM.
type System struct {
	store    vectorstore.Store
	provider embedder.Provider
	llm      llm.Provider
	hybrid   *vectorstore.HybridSearcher
}

// Option configures a System.
type Option func(*System)

// WithLLM configures a generation provider. Without one, queries return
// excerpt answers.
func WithLLM(provider llm.Provider) Option {
	return func(s *System) {
		s.llm = provider
	}
}

// NewSystem creates a RAG system over the given store and embedder.
func NewSystem(store vectorstore.Store, provider embedder.Provider, opts ...Option) (*System, error) {
	if store == nil {
		return nil, core.NewMemoryError("new rag system", core.ErrInvalidConfig)
	}
	if provider == nil {
		return nil, core.NewMemoryError("new rag system", core.ErrInvalidConfig)
	}

	s := &System{
		store:    store,
		provider: provider,
		hybrid:   vectorstore.NewHybridSearcher(store, provider),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddDocuments embeds and inserts documents into the underlying store.
func (s *System) AddDocuments(ctx context.Context, documents []vectorstore.Document) ([]int64, error) {
	return vectorstore.AddDocuments(ctx, s.store, s.provider, documents)
}

// Query answers a question from the stored documents.
func (s *System) Query(ctx context.Context, question string, opts *QueryOptions) (*Result, error) {
	if opts == nil {
		opts = DefaultQueryOptions()
	}
	k := opts.K
	if k <= 0 {
		k = DefaultTopK
	}

	relevant, err := s.retrieve(ctx, question, k, opts)
	if err != nil {
		return nil, err
	}

	if len(relevant) == 0 {
		return &Result{
			Question: question,
			Answer: Answer{
				Kind: AnswerNoResults,
				Text: "Sorry, no relevant information was found.",
			},
			Confidence: 0.0,
		}, nil
	}

	contextBlock := buildContext(relevant)
	answer := s.generateAnswer(ctx, question, contextBlock, len(relevant))

	return &Result{
		Question:          question,
		Answer:            answer,
		Context:           contextBlock,
		RelevantDocuments: relevant,
		Confidence:        calculateConfidence(relevant),
	}, nil
}

// BatchQuery answers each question in turn.
func (s *System) BatchQuery(ctx context.Context, questions []string, opts *QueryOptions) ([]*Result, error) {
	results := make([]*Result, 0, len(questions))
	for _, question := range questions {
		result, err := s.Query(ctx, question, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// GetRelevantDocs retrieves documents for a question without generating an
// answer.
func (s *System) GetRelevantDocs(ctx context.Context, question string, k int, filter map[string]interface{}) ([]vectorstore.SearchResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	queryEmbedding, err := s.provider.Embed(ctx, question)
	if err != nil {
		return nil, core.NewMemoryError("get relevant docs", err)
	}
	return s.store.SimilaritySearch(ctx, queryEmbedding, k, filter)
}

// Save persists the underlying store to path.
func (s *System) Save(path string) error {
	return s.store.Save(path)
}

// Load restores the underlying store from path.
func (s *System) Load(path string) error {
	return s.store.Load(path)
}

func (s *System) retrieve(ctx context.Context, question string, k int, opts *QueryOptions) ([]vectorstore.SearchResult, error) {
	if opts.Rerank {
		return s.hybrid.Search(ctx, question, k, opts.Filter)
	}

	queryEmbedding, err := s.provider.Embed(ctx, question)
	if err != nil {
		return nil, core.NewMemoryError("rag query", err)
	}
	return s.store.SimilaritySearch(ctx, queryEmbedding, k, opts.Filter)
}

func (s *System) generateAnswer(ctx context.Context, question, contextBlock string, docCount int) Answer {
	if s.llm == nil {
		return Answer{
			Kind: AnswerExcerpt,
			Text: excerptAnswer(contextBlock, docCount),
		}
	}

	system := fmt.Sprintf(`You are a document question-answering assistant. Answer the question using only the context below.

Rules:
1. Use only information from the context.
2. If the context does not contain the answer, say "The context does not contain this information."
3. Do not add information that is not in the context.

Context:
%s`, contextBlock)

	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: question},
	}

	text, err := s.llm.GenerateWithMessages(ctx, messages)
	if err != nil {
		log.Printf("[RAG] answer generation failed: %v", err)
		return Answer{
			Kind:   AnswerDegraded,
			Text:   excerptAnswer(contextBlock, docCount),
			Reason: err.Error(),
		}
	}

	return Answer{
		Kind: AnswerGenerated,
		Text: strings.TrimSpace(text),
	}
}

// buildContext assembles the numbered context block from retrieval hits.
func buildContext(relevant []vectorstore.SearchResult) string {
	parts := make([]string, len(relevant))
	for i, hit := range relevant {
		source := hit.Source
		if source == "" {
			source = fmt.Sprintf("doc_%d", i)
		}
		parts[i] = fmt.Sprintf("Document %d [%s]:\n%s", i+1, source, hit.Document.Content)
	}
	return strings.Join(parts, "\n\n")
}

// excerptAnswer builds the templated answer used when no LLM is available.
func excerptAnswer(contextBlock string, docCount int) string {
	excerpt := contextBlock
	if runes := []rune(excerpt); len(runes) > excerptLimit {
		excerpt = string(runes[:excerptLimit]) + "..."
	}
	return fmt.Sprintf("Based on %d relevant document excerpts:\n\n%s", docCount, excerpt)
}

// calculateConfidence averages the best and mean retrieval scores, clamped
// to [0, 1].
func calculateConfidence(relevant []vectorstore.SearchResult) float64 {
	if len(relevant) == 0 {
		return 0.0
	}

	maxScore := relevant[0].Score
	sum := 0.0
	for _, hit := range relevant {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
		sum += hit.Score
	}
	avgScore := sum / float64(len(relevant))

	confidence := (maxScore + avgScore) / 2
	return math.Min(math.Max(confidence, 0.0), 1.0)
}
