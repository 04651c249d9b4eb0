// Package synth turns development examples into synthetic test data using a generation model.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/datar-psa/genaivalidator/api"
)

// DefaultModerationThreshold is the confidence above which a moderation category is flagged.
const DefaultModerationThreshold = 0.5

// Generator issues a single generation call. An empty context means no context.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt, context string) (string, error)
}

// Options configures a Synthesizer
type Options struct {
	concurrency int
	moderator   api.ModerationProvider
	threshold   float64
	logger      *slog.Logger
}

// WithConcurrency sets how many examples are synthesized in parallel. Values below 2 keep
// synthesis sequential. Output order never depends on this setting.
func WithConcurrency(n int) func(*Options) {
	return func(opts *Options) {
		opts.concurrency = n
	}
}

// WithModerator screens every synthetic question and answer with provider.
// Categories above threshold are recorded on TestDataItem.Flagged.
func WithModerator(provider api.ModerationProvider, threshold float64) func(*Options) {
	return func(opts *Options) {
		opts.moderator = provider
		opts.threshold = threshold
	}
}

// WithLogger sets the logger used for progress and moderation warnings
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Synthesizer implements the batch and test-data operations of a model provider
// on top of its single-call generator.
type Synthesizer struct {
	gen  Generator
	opts Options
}

// New creates a Synthesizer driven by gen.
func New(gen Generator, opts ...func(*Options)) *Synthesizer {
	options := Options{concurrency: 1}
	for _, opt := range opts {
		opt(&options)
	}
	if options.threshold <= 0 {
		options.threshold = DefaultModerationThreshold
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	return &Synthesizer{gen: gen, opts: options}
}

// BatchGenerate generates one response per prompt, in order. contexts must be nil or
// have the same length as prompts. The first failing prompt aborts the batch.
func (s *Synthesizer) BatchGenerate(ctx context.Context, prompts, contexts []string) ([]string, error) {
	if contexts != nil && len(contexts) != len(prompts) {
		return nil, fmt.Errorf("batch generate: %d prompts but %d contexts", len(prompts), len(contexts))
	}

	responses := make([]string, 0, len(prompts))
	for i, prompt := range prompts {
		var promptContext string
		if contexts != nil {
			promptContext = contexts[i]
		}
		response, err := s.gen.GenerateResponse(ctx, prompt, promptContext)
		if err != nil {
			return nil, fmt.Errorf("batch generate prompt %d: %w", i, err)
		}
		responses = append(responses, response)
	}
	return responses, nil
}

// GenerateTestData synthesizes a new question and a ground-truth answer for every example.
// The result has the same length and order as examples.
func (s *Synthesizer) GenerateTestData(ctx context.Context, examples []api.DevelopmentExample) ([]api.TestDataItem, error) {
	items := make([]api.TestDataItem, len(examples))

	if s.opts.concurrency < 2 {
		for i, example := range examples {
			item, err := s.synthesize(ctx, i, example)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.concurrency)
	for i, example := range examples {
		g.Go(func() error {
			item, err := s.synthesize(gctx, i, example)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, index int, example api.DevelopmentExample) (api.TestDataItem, error) {
	question, err := s.gen.GenerateResponse(ctx, QuestionPrompt(example.Context, example.Question), "")
	if err != nil {
		return api.TestDataItem{}, fmt.Errorf("synthesize question for example %d: %w", index, err)
	}
	question = strings.TrimSpace(question)

	groundTruth, err := s.gen.GenerateResponse(ctx, AnswerPrompt(example.Context, question), "")
	if err != nil {
		return api.TestDataItem{}, fmt.Errorf("synthesize answer for example %d: %w", index, err)
	}

	item := api.TestDataItem{
		Context:          example.Context,
		Question:         question,
		GroundTruth:      strings.TrimSpace(groundTruth),
		OriginalQuestion: example.Question,
		OriginalAnswer:   example.Answer,
	}
	item.Flagged = s.screen(ctx, index, item)

	s.opts.logger.Debug("synthesized test item", "index", index, "question", item.Question)
	return item, nil
}

// screen runs the moderator over the synthetic content. Moderation failures are logged, not fatal.
func (s *Synthesizer) screen(ctx context.Context, index int, item api.TestDataItem) []string {
	if s.opts.moderator == nil {
		return nil
	}

	result, err := s.opts.moderator.Moderate(ctx, item.Question+"\n\n"+item.GroundTruth)
	if err != nil {
		s.opts.logger.Warn("moderation failed for synthetic item", "index", index, "error", err)
		return nil
	}
	if result == nil {
		return nil
	}

	var flagged []string
	for _, category := range result.Categories {
		if category.Confidence > s.opts.threshold {
			flagged = append(flagged, category.Name)
		}
	}
	if len(flagged) > 0 {
		sort.Strings(flagged)
		s.opts.logger.Warn("synthetic item flagged by moderation", "index", index, "categories", flagged)
	}
	return flagged
}

const questionPromptTemplate = `Based on the following context and original question, generate a new, related but different question that tests similar knowledge or understanding:

Context: %s
Original Question: %s

Generate a new question:`

const answerPromptTemplate = `Context: %s
Question: %s

Provide a detailed and accurate answer:`

// QuestionPrompt builds the prompt asking for a new question related to the original one.
func QuestionPrompt(context, originalQuestion string) string {
	return fmt.Sprintf(questionPromptTemplate, context, originalQuestion)
}

// AnswerPrompt builds the prompt asking for a ground-truth answer to question.
func AnswerPrompt(context, question string) string {
	return fmt.Sprintf(answerPromptTemplate, context, question)
}
