package llmjudge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/datar-psa/genaivalidator/api"
)

// mockJudge records prompts and returns a canned structured response
type mockJudge struct {
	response map[string]interface{}
	err      error
	prompts  []string
	schemas  []map[string]interface{}
}

func (m *mockJudge) StructuredGenerate(ctx context.Context, prompt string, schema map[string]interface{}) (map[string]interface{}, error) {
	m.prompts = append(m.prompts, prompt)
	m.schemas = append(m.schemas, schema)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

var scorers = map[string]func(api.LLMGenerator) api.Scorer{
	"Faithfulness":       Faithfulness,
	"ContextUtilization": ContextUtilization,
	"AnswerRelevancy":    AnswerRelevancy,
	"ContextRecall":      ContextRecall,
}

func TestChoiceScorers_Unit(t *testing.T) {
	ctx := context.Background()
	in := api.ScoreInputs{
		Input:    "What is the capital of France?",
		Output:   "Paris is the capital of France.",
		Context:  "France is a country in Europe. Its capital is Paris.",
		Expected: "Paris",
	}

	tests := []struct {
		name      string
		response  map[string]interface{}
		llmErr    error
		wantScore float64
		wantErr   error
		wantAnyEr bool
	}{
		{name: "choice A", response: map[string]interface{}{"choice": "A", "explanation": "fully supported"}, wantScore: 1.0},
		{name: "choice B", response: map[string]interface{}{"choice": "B"}, wantScore: 0.75},
		{name: "choice C", response: map[string]interface{}{"choice": "C"}, wantScore: 0.5},
		{name: "choice D", response: map[string]interface{}{"choice": "D"}, wantScore: 0.25},
		{name: "choice E", response: map[string]interface{}{"choice": "E"}, wantScore: 0.0},
		{name: "lowercase choice", response: map[string]interface{}{"choice": " b "}, wantScore: 0.75},
		{name: "llm error", llmErr: errors.New("quota"), wantErr: api.ErrLLMGenerationFailed},
		{name: "missing choice", response: map[string]interface{}{"explanation": "?"}, wantAnyEr: true},
		{name: "invalid choice", response: map[string]interface{}{"choice": "F"}, wantAnyEr: true},
	}

	for scorerName, newScorer := range scorers {
		for _, tt := range tests {
			t.Run(scorerName+"/"+tt.name, func(t *testing.T) {
				llm := &mockJudge{response: tt.response, err: tt.llmErr}
				result := newScorer(llm).Score(ctx, in)

				if result.Name != scorerName {
					t.Errorf("Score() name = %q, want %q", result.Name, scorerName)
				}
				if tt.wantErr != nil || tt.wantAnyEr {
					if result.Error == nil {
						t.Fatal("Score() expected error but got none")
					}
					if tt.wantErr != nil && !errors.Is(result.Error, tt.wantErr) {
						t.Errorf("Score() error = %v, want %v", result.Error, tt.wantErr)
					}
					if result.Score != 0 {
						t.Errorf("Score() score = %v on error, want 0", result.Score)
					}
					return
				}
				if result.Error != nil {
					t.Fatalf("Score() unexpected error = %v", result.Error)
				}
				if result.Score != tt.wantScore {
					t.Errorf("Score() score = %v, want %v", result.Score, tt.wantScore)
				}
				if len(llm.prompts) != 1 {
					t.Errorf("Score() made %d judge calls, want 1", len(llm.prompts))
				}
				if llm.schemas[0]["required"] == nil {
					t.Error("Score() sent a schema without required fields")
				}
			})
		}
	}
}

func TestChoiceScorers_EmptyOutput(t *testing.T) {
	for scorerName, newScorer := range scorers {
		t.Run(scorerName, func(t *testing.T) {
			llm := &mockJudge{response: map[string]interface{}{"choice": "A"}}
			result := newScorer(llm).Score(context.Background(), api.ScoreInputs{Input: "q", Context: "c", Output: "  "})

			if result.Error != nil {
				t.Fatalf("Score() unexpected error = %v", result.Error)
			}
			if result.Score != 0 {
				t.Errorf("Score() score = %v, want 0 for empty output", result.Score)
			}
			if len(llm.prompts) != 0 {
				t.Error("Score() called the judge for an empty output")
			}
		})
	}
}

func TestContextRecall_EmptyOutputWithExpected(t *testing.T) {
	llm := &mockJudge{response: map[string]interface{}{"choice": "A", "explanation": "all attributed"}}
	result := ContextRecall(llm).Score(context.Background(), api.ScoreInputs{
		Input:    "Who wrote the book?",
		Output:   "",
		Context:  "Alice wrote the book.",
		Expected: "Alice wrote the book.",
	})

	if result.Error != nil {
		t.Fatalf("Score() unexpected error = %v", result.Error)
	}
	if result.Score != 1.0 {
		t.Errorf("Score() score = %v, want 1.0", result.Score)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("Score() made %d judge calls, want 1", len(llm.prompts))
	}
	if !strings.Contains(llm.prompts[0], "[Reference Answer]: Alice wrote the book.") {
		t.Errorf("prompt does not carry the ground truth:\n%s", llm.prompts[0])
	}
}

func TestChoiceScorers_NilLLM(t *testing.T) {
	for scorerName, newScorer := range scorers {
		t.Run(scorerName, func(t *testing.T) {
			result := newScorer(nil).Score(context.Background(), api.ScoreInputs{Output: "answer"})
			if result.Error == nil {
				t.Error("Score() expected error for nil LLM")
			}
		})
	}
}

func TestPrompts(t *testing.T) {
	in := api.ScoreInputs{
		Input:    "QUESTION-TEXT",
		Output:   "ANSWER-TEXT",
		Context:  "CONTEXT-TEXT",
		Expected: "GROUND-TRUTH",
	}

	tests := []struct {
		name        string
		scorer      func(api.LLMGenerator) api.Scorer
		in          api.ScoreInputs
		contains    []string
		notContains []string
	}{
		{
			name:     "faithfulness sees context and answer",
			scorer:   Faithfulness,
			in:       in,
			contains: []string{"CONTEXT-TEXT", "QUESTION-TEXT", "ANSWER-TEXT"},
		},
		{
			name:        "answer relevancy ignores context",
			scorer:      AnswerRelevancy,
			in:          in,
			contains:    []string{"QUESTION-TEXT", "ANSWER-TEXT"},
			notContains: []string{"CONTEXT-TEXT"},
		},
		{
			name:     "context utilization sees context and answer",
			scorer:   ContextUtilization,
			in:       in,
			contains: []string{"CONTEXT-TEXT", "ANSWER-TEXT"},
		},
		{
			name:        "context recall prefers ground truth",
			scorer:      ContextRecall,
			in:          in,
			contains:    []string{"CONTEXT-TEXT", "GROUND-TRUTH"},
			notContains: []string{"ANSWER-TEXT"},
		},
		{
			name:     "context recall falls back to answer",
			scorer:   ContextRecall,
			in:       api.ScoreInputs{Input: "QUESTION-TEXT", Output: "ANSWER-TEXT", Context: "CONTEXT-TEXT"},
			contains: []string{"CONTEXT-TEXT", "ANSWER-TEXT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &mockJudge{response: map[string]interface{}{"choice": "A"}}
			tt.scorer(llm).Score(context.Background(), tt.in)

			if len(llm.prompts) != 1 {
				t.Fatalf("made %d judge calls, want 1", len(llm.prompts))
			}
			for _, s := range tt.contains {
				if !strings.Contains(llm.prompts[0], s) {
					t.Errorf("prompt does not contain %q", s)
				}
			}
			for _, s := range tt.notContains {
				if strings.Contains(llm.prompts[0], s) {
					t.Errorf("prompt unexpectedly contains %q", s)
				}
			}
		})
	}
}
