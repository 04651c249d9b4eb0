package llmjudge

import (
	"context"
	"testing"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/internal/testutils"
)

// TestFaithfulness_Integration tests the Faithfulness scorer with real Gemini API calls
// This test requires valid Google Cloud credentials and uses hypert to cache requests
func TestFaithfulness_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testutils.RequireRecordings(t, "faithfulness")

	ctx := context.Background()

	// Create Gemini generator using test utilities
	llmGen := testutils.NewGeminiGenerator(t, testutils.DefaultGeminiTestConfig("faithfulness"), "publishers/google/models/gemini-2.5-flash")

	tests := []struct {
		name     string
		context  string
		input    string
		output   string
		minScore float64
		maxScore float64
	}{
		{
			name:     "grounded answer",
			context:  "The Eiffel Tower was completed in 1889 and is 330 metres tall.",
			input:    "When was the Eiffel Tower completed?",
			output:   "It was completed in 1889.",
			minScore: 0.75,
			maxScore: 1.0,
		},
		{
			name:     "contradicting answer",
			context:  "The Eiffel Tower was completed in 1889 and is 330 metres tall.",
			input:    "When was the Eiffel Tower completed?",
			output:   "It was completed in 1925 and is 500 metres tall.",
			minScore: 0.0,
			maxScore: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Faithfulness(llmGen).Score(ctx, api.ScoreInputs{Input: tt.input, Output: tt.output, Context: tt.context})

			if result.Error != nil {
				t.Fatalf("Faithfulness.Score() unexpected error = %v", result.Error)
			}
			if result.Score < tt.minScore || result.Score > tt.maxScore {
				t.Errorf("Faithfulness.Score() score = %v, want between %v and %v", result.Score, tt.minScore, tt.maxScore)
				t.Logf("Choice: %v", result.Metadata["choice"])
				t.Logf("Raw response: %v", result.Metadata["raw_response"])
			}
		})
	}
}

// TestAnswerRelevancy_Integration tests the AnswerRelevancy scorer with real Gemini API calls
// This test requires valid Google Cloud credentials and uses hypert to cache requests
func TestAnswerRelevancy_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testutils.RequireRecordings(t, "answer_relevancy")

	ctx := context.Background()

	llmGen := testutils.NewGeminiGenerator(t, testutils.DefaultGeminiTestConfig("answer_relevancy"), "publishers/google/models/gemini-2.5-flash")

	tests := []struct {
		name     string
		input    string
		output   string
		minScore float64
		maxScore float64
	}{
		{
			name:     "direct answer",
			input:    "What is the capital of France?",
			output:   "The capital of France is Paris.",
			minScore: 0.75,
			maxScore: 1.0,
		},
		{
			name:     "off-topic answer",
			input:    "What is the capital of France?",
			output:   "Bananas are rich in potassium.",
			minScore: 0.0,
			maxScore: 0.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnswerRelevancy(llmGen).Score(ctx, api.ScoreInputs{Input: tt.input, Output: tt.output})

			if result.Error != nil {
				t.Fatalf("AnswerRelevancy.Score() unexpected error = %v", result.Error)
			}
			if result.Score < tt.minScore || result.Score > tt.maxScore {
				t.Errorf("AnswerRelevancy.Score() score = %v, want between %v and %v", result.Score, tt.minScore, tt.maxScore)
				t.Logf("Choice: %v", result.Metadata["choice"])
			}
		})
	}
}
