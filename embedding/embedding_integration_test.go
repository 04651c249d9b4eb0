package embedding

import (
	"context"
	"testing"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/internal/testutils"
)

// TestEmbeddingSimilarity_Integration tests the EmbeddingSimilarity scorer with real Gemini embeddings API
// This test requires valid Google Cloud credentials and uses hypert to cache requests
func TestEmbeddingSimilarity_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testutils.RequireRecordings(t, "embedding")

	ctx := context.Background()
	embedder := testutils.NewGeminiEmbedder(t, testutils.DefaultGeminiTestConfig("embedding"), "text-embedding-005")

	tests := []struct {
		name     string
		output   string
		expected string
		minScore float64
		maxScore float64
	}{
		{
			name:     "identical text",
			output:   "Paris is the capital of France.",
			expected: "Paris is the capital of France.",
			minScore: 0.95,
			maxScore: 1.0,
		},
		{
			name:     "paraphrase",
			output:   "Paris is the capital of France.",
			expected: "France's capital city is Paris.",
			minScore: 0.85,
			maxScore: 1.0,
		},
		{
			name:     "unrelated",
			output:   "Paris is the capital of France.",
			expected: "Preheat the oven before baking the cake.",
			minScore: 0.0,
			maxScore: 0.80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EmbeddingSimilarity(embedder, EmbeddingSimilarityOptions{}).Score(ctx, api.ScoreInputs{Output: tt.output, Expected: tt.expected})

			if result.Error != nil {
				t.Fatalf("EmbeddingSimilarity.Score() unexpected error = %v", result.Error)
			}
			if result.Score < tt.minScore || result.Score > tt.maxScore {
				t.Errorf("EmbeddingSimilarity.Score() score = %v, want between %v and %v", result.Score, tt.minScore, tt.maxScore)
				t.Logf("Cosine similarity: %v", result.Metadata["cosine_similarity"])
			}
		})
	}
}

// TestAnswerRelevancy_Integration uses a Gemini judge for reverse questions and Gemini embeddings
func TestAnswerRelevancy_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testutils.RequireRecordings(t, "answer_relevancy")

	ctx := context.Background()
	config := testutils.DefaultGeminiTestConfig("answer_relevancy")
	llm := testutils.NewGeminiGenerator(t, config, "publishers/google/models/gemini-2.5-flash")
	embedder := testutils.NewGeminiEmbedder(t, config, "text-embedding-005")

	result := AnswerRelevancy(llm, embedder, AnswerRelevancyOptions{}).Score(ctx, api.ScoreInputs{
		Input:   "When was the Eiffel Tower completed?",
		Output:  "The Eiffel Tower was completed in 1889.",
		Context: "The Eiffel Tower was completed in 1889 and is 330 metres tall.",
	})
	if result.Error != nil {
		t.Fatalf("AnswerRelevancy.Score() unexpected error = %v", result.Error)
	}
	if result.Score < 0.7 {
		t.Errorf("AnswerRelevancy.Score() score = %v, want at least 0.7", result.Score)
		t.Logf("Generated questions: %v", result.Metadata["generated_questions"])
	}
}
