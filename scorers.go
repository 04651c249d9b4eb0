package genaivalidator

import (
	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/embedding"
	"github.com/datar-psa/genaivalidator/gemini"
	"github.com/datar-psa/genaivalidator/heuristic"
	"github.com/datar-psa/genaivalidator/llmjudge"
	"google.golang.org/genai"
)

// LLMJudge wraps an LLM generator and exposes constructors for the LLM-as-a-judge metrics.
// It also carries the moderation provider used to screen synthetic test data.
type LLMJudge struct {
	llm        api.LLMGenerator
	moderation api.ModerationProvider
}

// LLMJudgeOptions configures LLMJudge creation
type LLMJudgeOptions struct {
	llm        api.LLMGenerator
	moderation api.ModerationProvider
}

// WithLLMGenerator sets the LLM generator for the judge.
// *azure.Model, *bedrock.Model and *gemini.Generator all qualify.
func WithLLMGenerator(llm api.LLMGenerator) func(*LLMJudgeOptions) {
	return func(opts *LLMJudgeOptions) {
		opts.llm = llm
	}
}

// WithModerationProvider sets the moderation provider for the judge
func WithModerationProvider(provider api.ModerationProvider) func(*LLMJudgeOptions) {
	return func(opts *LLMJudgeOptions) {
		opts.moderation = provider
	}
}

// NewLLMJudge creates a new Judge wrapper using functional options.
func NewLLMJudge(opts ...func(*LLMJudgeOptions)) *LLMJudge {
	options := &LLMJudgeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &LLMJudge{
		llm:        options.llm,
		moderation: options.moderation,
	}
}

// GeminiOptions configures Gemini LLMJudge creation
type GeminiOptions struct {
	genaiClient *genai.Client
	modelName   string
	langClient  gemini.TextModerator
}

// WithGenaiClient sets the Gemini client for the judge
func WithGenaiClient(client *genai.Client) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.genaiClient = client
	}
}

// WithModelName sets the model name for the judge
func WithModelName(modelName string) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.modelName = modelName
	}
}

// WithLanguageClient sets the Google Cloud Language client for moderation.
// A *language.Client from cloud.google.com/go/language/apiv1 qualifies.
func WithLanguageClient(langClient gemini.TextModerator) func(*GeminiOptions) {
	return func(opts *GeminiOptions) {
		opts.langClient = langClient
	}
}

// NewGeminiLLMJudge creates a Judge using Gemini client and model name.
// Example model: "publishers/google/models/gemini-2.5-flash".
func NewGeminiLLMJudge(opts ...func(*GeminiOptions)) *LLMJudge {
	options := &GeminiOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var llmOptions []func(*LLMJudgeOptions)

	// Only add LLM generator if genaiClient is provided
	if options.genaiClient != nil && options.modelName != "" {
		llmOptions = append(llmOptions, WithLLMGenerator(gemini.NewGenerator(options.genaiClient, options.modelName)))
	}

	// Only add moderation provider if langClient is provided
	if options.langClient != nil {
		llmOptions = append(llmOptions, WithModerationProvider(gemini.NewGoogleLanguageProvider(options.langClient)))
	}

	return NewLLMJudge(llmOptions...)
}

// LLM returns the judge model, nil when none was configured.
func (j *LLMJudge) LLM() api.LLMGenerator {
	return j.llm
}

// Moderation returns the moderation provider, nil when none was configured.
func (j *LLMJudge) Moderation() api.ModerationProvider {
	return j.moderation
}

// Faithfulness returns a scorer grading how well the answer is supported by the context.
func (j *LLMJudge) Faithfulness() api.Scorer {
	return llmjudge.Faithfulness(j.llm)
}

// ContextUtilization returns a scorer grading how much of the relevant context the answer uses.
func (j *LLMJudge) ContextUtilization() api.Scorer {
	return llmjudge.ContextUtilization(j.llm)
}

// AnswerRelevancy returns a scorer grading how directly the answer addresses the question.
func (j *LLMJudge) AnswerRelevancy() api.Scorer {
	return llmjudge.AnswerRelevancy(j.llm)
}

// ContextRecall returns a scorer grading how much of the ground truth the context supports.
func (j *LLMJudge) ContextRecall() api.Scorer {
	return llmjudge.ContextRecall(j.llm)
}

// Scorers returns the judge scorer for every metric name.
func (j *LLMJudge) Scorers() map[string]api.Scorer {
	return map[string]api.Scorer{
		api.MetricFaithfulness:       j.Faithfulness(),
		api.MetricContextUtilization: j.ContextUtilization(),
		api.MetricAnswerRelevancy:    j.AnswerRelevancy(),
		api.MetricContextRecall:      j.ContextRecall(),
	}
}

// Embedding wraps an embedder and exposes convenient constructors for embedding-based scorers.
type Embedding struct{ embedder api.Embedder }

// EmbeddingOptions configures Embedding creation
type EmbeddingOptions struct {
	embedder api.Embedder
}

// WithEmbedder sets the embedder for the embedding scorer
func WithEmbedder(embedder api.Embedder) func(*EmbeddingOptions) {
	return func(opts *EmbeddingOptions) {
		opts.embedder = embedder
	}
}

// NewEmbedding creates a new Embedding wrapper using functional options.
func NewEmbedding(opts ...func(*EmbeddingOptions)) *Embedding {
	options := &EmbeddingOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &Embedding{embedder: options.embedder}
}

// NewGeminiEmbedding creates an Embedding using Gemini client and model name.
// Example model: "text-embedding-005".
func NewGeminiEmbedding(opts ...func(*GeminiOptions)) *Embedding {
	options := &GeminiOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var embeddingOptions []func(*EmbeddingOptions)

	// Only add embedder if genaiClient and modelName are provided
	if options.genaiClient != nil && options.modelName != "" {
		embeddingOptions = append(embeddingOptions, WithEmbedder(gemini.NewEmbedder(options.genaiClient, options.modelName)))
	}

	return NewEmbedding(embeddingOptions...)
}

// Embedder returns the wrapped embedder, nil when none was configured.
func (e *Embedding) Embedder() api.Embedder {
	return e.embedder
}

type EmbeddingSimilarityOptions = embedding.EmbeddingSimilarityOptions

// Similarity returns a scorer that measures semantic similarity using embeddings.
func (e *Embedding) Similarity(opts EmbeddingSimilarityOptions) api.Scorer {
	return embedding.EmbeddingSimilarity(e.embedder, opts)
}

type AnswerRelevancyOptions = embedding.AnswerRelevancyOptions

// AnswerRelevancy returns the reverse-question answer relevancy scorer, using llm to derive questions.
func (e *Embedding) AnswerRelevancy(llm api.LLMGenerator, opts AnswerRelevancyOptions) api.Scorer {
	return embedding.AnswerRelevancy(llm, e.embedder, opts)
}

// Heuristic exposes convenient constructors for heuristic scorers.
type Heuristic struct{}

// NewHeuristic creates a new Heuristic.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

type TokenOverlapOptions = heuristic.TokenOverlapOptions

// TokenOverlap returns a scorer measuring the share of candidate tokens found in the reference.
func (h *Heuristic) TokenOverlap(opts TokenOverlapOptions) api.Scorer {
	return heuristic.TokenOverlap(opts)
}

// Scorers returns the offline lexical scorer for every metric name.
func (h *Heuristic) Scorers() map[string]api.Scorer {
	return heuristic.Scorers()
}

// JudgeScorers returns a scorer per metric backed by llm. With a non-nil embedder answer
// relevancy uses the reverse-question embedding scorer instead of a single judge call, and
// answer similarity is scored as the embedding similarity of answer and ground truth.
func JudgeScorers(llm api.LLMGenerator, embedder api.Embedder) map[string]api.Scorer {
	scorers := NewLLMJudge(WithLLMGenerator(llm)).Scorers()
	if embedder != nil {
		emb := NewEmbedding(WithEmbedder(embedder))
		scorers[api.MetricAnswerRelevancy] = emb.AnswerRelevancy(llm, AnswerRelevancyOptions{})
		scorers[api.MetricAnswerSimilarity] = emb.Similarity(EmbeddingSimilarityOptions{})
	}
	return scorers
}

// LexicalScorers returns the offline token-overlap scorer per metric.
func LexicalScorers() map[string]api.Scorer {
	return NewHeuristic().Scorers()
}
