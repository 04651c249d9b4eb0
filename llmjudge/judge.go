// Package llmjudge implements LLM-as-a-judge scorers for retrieval-augmented answers.
//
// Every scorer asks the judge model for a single anchored A–E choice through
// StructuredGenerate. A is the best grade and maps to 1.0; E maps to 0.0.
package llmjudge

import (
	"context"
	"fmt"
	"strings"

	"github.com/datar-psa/genaivalidator/api"
)

// choiceToScore maps an anchored A–E choice to [0,1]
var choiceToScore = map[string]float64{
	"A": 1.0,
	"B": 0.75,
	"C": 0.5,
	"D": 0.25,
	"E": 0.0,
}

// choiceSchema is the structured response every judge prompt asks for
var choiceSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"choice": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"A", "B", "C", "D", "E"},
			"description": "Grade (A–E) with anchored definitions",
		},
		"explanation": map[string]interface{}{
			"type":        "string",
			"description": "Short justification (<=40 words)",
		},
	},
	"required": []string{"choice", "explanation"},
}

// promptFunc renders the judge prompt for one scored item
type promptFunc func(in api.ScoreInputs) string

// choiceScorer is the shared single-call A–E judge behind every scorer in this package
type choiceScorer struct {
	name   string
	llm    api.LLMGenerator
	prompt promptFunc
	// graded returns the text under judgement. Nil means Output.
	graded func(in api.ScoreInputs) string
}

func (s *choiceScorer) gradedText(in api.ScoreInputs) string {
	if s.graded == nil {
		return in.Output
	}
	return s.graded(in)
}

func (s *choiceScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     s.name,
		Metadata: make(map[string]any),
	}

	if s.llm == nil {
		result.Error = fmt.Errorf("LLM generator is required")
		return result
	}

	// Nothing to grade supports nothing and uses nothing
	if strings.TrimSpace(s.gradedText(in)) == "" {
		result.Metadata["choice"] = "E"
		result.Metadata["explanation"] = "empty answer"
		return result
	}

	structuredResponse, err := s.llm.StructuredGenerate(ctx, s.prompt(in), choiceSchema)
	if err != nil {
		return returnError(&result, fmt.Errorf("%w: %v", api.ErrLLMGenerationFailed, err), nil)
	}

	choice, ok := structuredResponse["choice"].(string)
	if !ok {
		return returnError(&result, fmt.Errorf("failed to extract choice from structured response"), structuredResponse)
	}
	choice = strings.ToUpper(strings.TrimSpace(choice))

	score, ok := choiceToScore[choice]
	if !ok {
		return returnError(&result, fmt.Errorf("unexpected choice %q in structured response", choice), structuredResponse)
	}

	explanation, _ := structuredResponse["explanation"].(string)

	result.Score = score
	result.Metadata["choice"] = choice
	result.Metadata["explanation"] = explanation
	result.Metadata["raw_response"] = structuredResponse
	return result
}

// returnError is a helper function to set error metadata consistently
func returnError(result *api.Score, err error, rawResponse interface{}) api.Score {
	result.Error = err
	result.Score = 0
	result.Metadata["raw_response"] = rawResponse
	result.Metadata["choice"] = ""
	return *result
}
