package llmjudge

import (
	"fmt"

	"github.com/datar-psa/genaivalidator/api"
)

// AnswerRelevancy returns a scorer that grades how directly Output answers Input.
// Correctness is not judged, only whether the answer addresses the question.
func AnswerRelevancy(llm api.LLMGenerator) api.Scorer {
	return &choiceScorer{
		name: "AnswerRelevancy",
		llm:  llm,
		prompt: func(in api.ScoreInputs) string {
			return fmt.Sprintf(answerRelevancyPromptTemplate, in.Input, in.Output)
		},
	}
}

const answerRelevancyPromptTemplate = `You are evaluating whether an answer addresses the question that was asked. Ignore factual correctness. Be deterministic and concise.

[BEGIN DATA]
[Question]: %s
[Answer]: %s
[END DATA]

Select one option:
A: the answer fully and directly addresses the question with no irrelevant content
B: the answer addresses the question but includes some unnecessary content
C: the answer partially addresses the question
D: the answer is mostly off-topic or evasive
E: the answer does not address the question at all

Return the letter as "choice" and a short explanation.`
