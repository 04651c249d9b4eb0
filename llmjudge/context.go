package llmjudge

import (
	"fmt"

	"github.com/datar-psa/genaivalidator/api"
)

// ContextUtilization returns a scorer that grades how much of the relevant information in Context
// the answer actually uses.
func ContextUtilization(llm api.LLMGenerator) api.Scorer {
	return &choiceScorer{
		name: "ContextUtilization",
		llm:  llm,
		prompt: func(in api.ScoreInputs) string {
			return fmt.Sprintf(contextUtilizationPromptTemplate, in.Context, in.Input, in.Output)
		},
	}
}

// ContextRecall returns a scorer that grades how much of the reference answer can be attributed
// to Context. The reference is Expected when set, otherwise the model's own Output.
func ContextRecall(llm api.LLMGenerator) api.Scorer {
	return &choiceScorer{
		name: "ContextRecall",
		llm:  llm,
		prompt: func(in api.ScoreInputs) string {
			return fmt.Sprintf(contextRecallPromptTemplate, in.Context, in.Input, recallReference(in))
		},
		graded: recallReference,
	}
}

func recallReference(in api.ScoreInputs) string {
	if in.Expected != "" {
		return in.Expected
	}
	return in.Output
}

const contextUtilizationPromptTemplate = `You are evaluating how well an answer makes use of the context it was given. Be deterministic and concise.

[BEGIN DATA]
[Context]: %s
[Question]: %s
[Answer]: %s
[END DATA]

First identify the parts of the context that are relevant to the question, then check which of them the answer uses.

Select one option:
A: the answer uses all of the relevant information in the context
B: the answer uses most of the relevant information
C: the answer uses about half of the relevant information
D: the answer uses little of the relevant information
E: the answer ignores the context

Return the letter as "choice" and a short explanation.`

const contextRecallPromptTemplate = `You are evaluating whether the context contains the information needed to produce a reference answer. Be deterministic and concise.

[BEGIN DATA]
[Context]: %s
[Question]: %s
[Reference Answer]: %s
[END DATA]

Split the reference answer into statements and check whether each can be attributed to the context.

Select one option:
A: every statement in the reference answer can be attributed to the context
B: almost all statements can be attributed to the context
C: about half of the statements can be attributed to the context
D: few statements can be attributed to the context
E: none of the statements can be attributed to the context

Return the letter as "choice" and a short explanation.`
