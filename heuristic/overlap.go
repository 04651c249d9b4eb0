// Package heuristic implements offline scorers that need no model calls.
package heuristic

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/datar-psa/genaivalidator/api"
)

// Field selects one of the ScoreInputs texts
type Field int

const (
	FieldInput Field = iota
	FieldOutput
	FieldContext
	// FieldExpected falls back to Output when Expected is empty
	FieldExpected
)

func (f Field) String() string {
	switch f {
	case FieldInput:
		return "input"
	case FieldOutput:
		return "output"
	case FieldContext:
		return "context"
	case FieldExpected:
		return "expected"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

func (f Field) text(in api.ScoreInputs) string {
	switch f {
	case FieldInput:
		return in.Input
	case FieldOutput:
		return in.Output
	case FieldContext:
		return in.Context
	case FieldExpected:
		if in.Expected == "" {
			return in.Output
		}
		return in.Expected
	default:
		return ""
	}
}

// TokenOverlapOptions configures the TokenOverlap scorer
type TokenOverlapOptions struct {
	// Name overrides the scorer name (default "TokenOverlap")
	Name string
	// Candidate is the text whose tokens are looked up
	Candidate Field
	// Reference is the text the tokens must appear in
	Reference Field
	// KeepStopwords disables stopword removal
	KeepStopwords bool
}

// TokenOverlap returns a scorer measuring the share of distinct Candidate tokens that also
// appear in Reference. Tokens are lowercased letter/digit runs; common English stopwords are
// ignored unless KeepStopwords is set. An empty candidate scores 0.
func TokenOverlap(opts TokenOverlapOptions) api.Scorer {
	if opts.Name == "" {
		opts.Name = "TokenOverlap"
	}
	return &tokenOverlapScorer{opts: opts}
}

type tokenOverlapScorer struct {
	opts TokenOverlapOptions
}

func (s *tokenOverlapScorer) Score(ctx context.Context, in api.ScoreInputs) api.Score {
	result := api.Score{
		Name:     s.opts.Name,
		Metadata: make(map[string]any),
	}

	candidate := Tokens(s.opts.Candidate.text(in), s.opts.KeepStopwords)
	reference := make(map[string]struct{})
	for _, tok := range Tokens(s.opts.Reference.text(in), s.opts.KeepStopwords) {
		reference[tok] = struct{}{}
	}

	matched := 0
	for _, tok := range candidate {
		if _, ok := reference[tok]; ok {
			matched++
		}
	}

	if len(candidate) > 0 {
		result.Score = float64(matched) / float64(len(candidate))
	}
	result.Metadata["candidate"] = s.opts.Candidate.String()
	result.Metadata["reference"] = s.opts.Reference.String()
	result.Metadata["candidate_tokens"] = len(candidate)
	result.Metadata["matched_tokens"] = matched
	return result
}

// Tokens returns the distinct lowercased tokens of text in first-seen order
func Tokens(text string, keepStopwords bool) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if !keepStopwords {
			if _, stop := stopwords[f]; stop {
				continue
			}
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`a an and are as at be been but by can could did do does for from had has have
		he her his how i if in into is it its me my no not of on or our she so such than that the their
		them then there these they this to was we were what when where which who whom why will with would
		you your`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Scorers returns the token-overlap scorer for every metric name.
func Scorers() map[string]api.Scorer {
	overlap := func(name string, candidate, reference Field) api.Scorer {
		return TokenOverlap(TokenOverlapOptions{Name: name, Candidate: candidate, Reference: reference})
	}
	return map[string]api.Scorer{
		api.MetricFaithfulness:       overlap(api.MetricFaithfulness, FieldOutput, FieldContext),
		api.MetricContextUtilization: overlap(api.MetricContextUtilization, FieldContext, FieldOutput),
		api.MetricAnswerRelevancy:    overlap(api.MetricAnswerRelevancy, FieldInput, FieldOutput),
		api.MetricContextRecall:      overlap(api.MetricContextRecall, FieldExpected, FieldContext),
		api.MetricAnswerSimilarity:   overlap(api.MetricAnswerSimilarity, FieldOutput, FieldExpected),
	}
}
