package genaivalidator

import "github.com/datar-psa/genaivalidator/api"

// Score represents the result of an evaluation
type Score = api.Score

// ScoreInputs carries the question, answer, context and ground truth for a scorer.
type ScoreInputs = api.ScoreInputs

// Scorer evaluates the quality of an output
type Scorer = api.Scorer
