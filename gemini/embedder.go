package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/datar-psa/genaivalidator/api"
)

// TaskSemanticSimilarity tunes embeddings for comparing texts with each other.
const TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"

// EmbedderOptions configures an Embedder
type EmbedderOptions struct {
	taskType string
}

// WithTaskType sets the embedding task type (default SEMANTIC_SIMILARITY). Empty lets the model decide.
func WithTaskType(taskType string) func(*EmbedderOptions) {
	return func(opts *EmbedderOptions) {
		opts.taskType = taskType
	}
}

// Embedder embeds text with a Vertex AI / Gemini embedding model such as "text-embedding-005".
type Embedder struct {
	client    *genai.Client
	modelName string
	taskType  string
}

// NewEmbedder creates a Gemini embedder for modelName.
func NewEmbedder(client *genai.Client, modelName string, opts ...func(*EmbedderOptions)) *Embedder {
	options := EmbedderOptions{taskType: TaskSemanticSimilarity}
	for _, opt := range opts {
		opt(&options)
	}
	return &Embedder{
		client:    client,
		modelName: modelName,
		taskType:  options.taskType,
	}
}

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. Vectors come back in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts to embed")
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("cannot embed empty text at index %d", i)
		}
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: text}}}
	}

	result, err := e.client.Models.EmbedContent(ctx, e.modelName, contents, &genai.EmbedContentConfig{TaskType: e.taskType})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("empty embedding vector at index %d", i)
		}
		vectors[i] = toFloat64(emb.Values)
	}
	return vectors, nil
}

func toFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

var _ api.Embedder = (*Embedder)(nil)
