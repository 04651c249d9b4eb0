package llmjudge

import (
	"fmt"

	"github.com/datar-psa/genaivalidator/api"
)

// Faithfulness returns a scorer that grades how well every claim in Output is supported by Context.
func Faithfulness(llm api.LLMGenerator) api.Scorer {
	return &choiceScorer{
		name: "Faithfulness",
		llm:  llm,
		prompt: func(in api.ScoreInputs) string {
			return fmt.Sprintf(faithfulnessPromptTemplate, in.Context, in.Input, in.Output)
		},
	}
}

const faithfulnessPromptTemplate = `You are a strict evaluator checking whether an answer is grounded in the provided context. Be deterministic and concise.

[BEGIN DATA]
[Context]: %s
[Question]: %s
[Answer]: %s
[END DATA]

Break the answer into its factual claims and check each claim against the context only. Do not use outside knowledge.

Select one option:
A: every claim in the answer is directly supported by the context
B: almost all claims are supported; one minor detail is not stated in the context
C: about half of the claims are supported by the context
D: most claims are unsupported by the context
E: the answer contradicts the context or none of its claims are supported

Return the letter as "choice" and a short explanation.`
