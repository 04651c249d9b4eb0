// Package embedding implements scorers built on vector embeddings.
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/datar-psa/genaivalidator/api"
)

// EmbeddingSimilarityOptions configures the EmbeddingSimilarity scorer
type EmbeddingSimilarityOptions struct{}

// EmbeddingSimilarity returns a scorer that measures semantic similarity between Output and Expected.
// The cosine similarity is mapped from [-1,1] to [0,1].
func EmbeddingSimilarity(embedder api.Embedder, opts EmbeddingSimilarityOptions) api.Scorer {
	return &embeddingSimilarityScorer{embedder: embedder, opts: opts}
}

type embeddingSimilarityScorer struct {
	embedder api.Embedder
	opts     EmbeddingSimilarityOptions
}

func (s *embeddingSimilarityScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     "EmbeddingSimilarity",
		Metadata: make(map[string]any),
	}

	if in.Expected == "" {
		result.Error = api.ErrNoExpectedValue
		return result
	}
	if s.embedder == nil {
		result.Error = fmt.Errorf("embedder is required")
		return result
	}

	outputEmbed, err := s.embedder.Embed(ctx, in.Output)
	if err != nil {
		result.Error = fmt.Errorf("failed to embed output: %w", err)
		return result
	}
	expectedEmbed, err := s.embedder.Embed(ctx, in.Expected)
	if err != nil {
		result.Error = fmt.Errorf("failed to embed expected: %w", err)
		return result
	}

	similarity := cosineSimilarity(outputEmbed, expectedEmbed)

	result.Score = clamp01((similarity + 1.0) / 2.0)
	result.Metadata["cosine_similarity"] = similarity
	result.Metadata["embedding_dim"] = len(outputEmbed)
	return result
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Vectors of different length or zero norm have similarity 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
