package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/datar-psa/genaivalidator/api"
)

// DefaultQuestions is the number of reverse questions generated per answer
const DefaultQuestions = 3

// AnswerRelevancyOptions configures the AnswerRelevancy scorer
type AnswerRelevancyOptions struct {
	// Questions is how many questions the LLM derives from the answer (default 3)
	Questions int
}

// AnswerRelevancy returns a scorer that asks the LLM which questions Output answers and compares
// them with the real question (Input). The score is the mean cosine similarity, clamped to [0,1].
// Noncommittal answers ("I don't know") score 0.
func AnswerRelevancy(llm api.LLMGenerator, embedder api.Embedder, opts AnswerRelevancyOptions) api.Scorer {
	if opts.Questions <= 0 {
		opts.Questions = DefaultQuestions
	}
	return &answerRelevancyScorer{llm: llm, embedder: embedder, opts: opts}
}

type answerRelevancyScorer struct {
	llm      api.LLMGenerator
	embedder api.Embedder
	opts     AnswerRelevancyOptions
}

const reverseQuestionPromptTemplate = `Generate %d distinct questions that the following answer would be a direct response to. Use the context only to understand the answer.

[BEGIN DATA]
[Context]: %s
[Answer]: %s
[END DATA]

Also report whether the answer is noncommittal, i.e. evasive, vague or an "I don't know".`

func (s *answerRelevancyScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     "AnswerRelevancy",
		Metadata: make(map[string]any),
	}

	if s.llm == nil {
		result.Error = fmt.Errorf("LLM generator is required")
		return result
	}
	if s.embedder == nil {
		result.Error = fmt.Errorf("embedder is required")
		return result
	}
	if strings.TrimSpace(in.Output) == "" {
		return result
	}

	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"questions": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"noncommittal": map[string]interface{}{"type": "boolean"},
		},
		"required": []string{"questions", "noncommittal"},
	}

	prompt := fmt.Sprintf(reverseQuestionPromptTemplate, s.opts.Questions, in.Context, in.Output)
	structuredResponse, err := s.llm.StructuredGenerate(ctx, prompt, schema)
	if err != nil {
		result.Error = fmt.Errorf("%w: %v", api.ErrLLMGenerationFailed, err)
		return result
	}
	result.Metadata["raw_response"] = structuredResponse

	questions := stringSlice(structuredResponse["questions"])
	if len(questions) == 0 {
		result.Error = fmt.Errorf("failed to extract questions from structured response")
		return result
	}
	noncommittal, _ := structuredResponse["noncommittal"].(bool)
	result.Metadata["generated_questions"] = questions
	result.Metadata["noncommittal"] = noncommittal

	vectors, err := embedAll(ctx, s.embedder, append([]string{in.Input}, questions...))
	if err != nil {
		result.Error = err
		return result
	}

	similarities := make([]float64, 0, len(questions))
	var sum float64
	for _, embed := range vectors[1:] {
		sim := cosineSimilarity(vectors[0], embed)
		similarities = append(similarities, sim)
		sum += sim
	}
	result.Metadata["similarities"] = similarities

	if noncommittal {
		return result
	}
	result.Score = clamp01(sum / float64(len(similarities)))
	return result
}

// batchEmbedder is implemented by embedders that embed many texts in one request.
type batchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// embedAll embeds the question followed by the generated questions.
func embedAll(ctx context.Context, embedder api.Embedder, texts []string) ([][]float64, error) {
	if b, ok := embedder.(batchEmbedder); ok {
		vectors, err := b.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed questions: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("got %d embeddings for %d questions", len(vectors), len(texts))
		}
		return vectors, nil
	}

	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		embed, err := embedder.Embed(ctx, text)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to embed question: %w", err)
			}
			return nil, fmt.Errorf("failed to embed generated question %d: %w", i-1, err)
		}
		vectors[i] = embed
	}
	return vectors, nil
}

// stringSlice converts a decoded JSON array to non-empty strings
func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
