// Package metrics scores a model over synthetic test data.
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/datar-psa/genaivalidator/api"
)

// Names returns the supported metric names in canonical order.
func Names() []string {
	return []string{
		api.MetricFaithfulness,
		api.MetricContextUtilization,
		api.MetricAnswerRelevancy,
		api.MetricContextRecall,
		api.MetricAnswerSimilarity,
	}
}

// DefaultNames are the metrics computed when the caller requests none.
func DefaultNames() []string {
	return []string{
		api.MetricFaithfulness,
		api.MetricContextUtilization,
		api.MetricAnswerRelevancy,
	}
}

// IsKnown reports whether name is a supported metric.
func IsKnown(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Generator answers one question. api.ModelProvider satisfies it.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt, context string) (string, error)
}

// Options configures a Calculator
type Options struct {
	scorers map[string]api.Scorer
	logger  *slog.Logger
}

// WithScorer registers the scorer backing metric name
func WithScorer(name string, scorer api.Scorer) func(*Options) {
	return func(opts *Options) {
		opts.scorers[name] = scorer
	}
}

// WithScorers registers several scorers at once
func WithScorers(scorers map[string]api.Scorer) func(*Options) {
	return func(opts *Options) {
		for name, s := range scorers {
			opts.scorers[name] = s
		}
	}
}

// WithLogger sets the logger used for skipped metrics and progress
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Calculator maps metric names to scorers and averages them over test data.
type Calculator struct {
	scorers map[string]api.Scorer
	logger  *slog.Logger
}

// New creates a Calculator. Scorers registered under names outside Names() are dropped with a warning.
func New(opts ...func(*Options)) *Calculator {
	options := Options{scorers: map[string]api.Scorer{}}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	scorers := make(map[string]api.Scorer, len(options.scorers))
	for name, s := range options.scorers {
		if !IsKnown(name) {
			options.logger.Warn("ignoring scorer for unsupported metric", "metric", name, "error", api.ErrUnknownMetric)
			continue
		}
		if s == nil {
			continue
		}
		scorers[name] = s
	}
	return &Calculator{scorers: scorers, logger: options.logger}
}

// Available returns the registered metric names in canonical order.
func (c *Calculator) Available() []string {
	var names []string
	for _, n := range Names() {
		if _, ok := c.scorers[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// CalculateMetrics answers every test item with model and returns the mean score per metric.
//
// An empty names slice selects all supported metrics. Unknown metrics, and known metrics
// without a registered scorer, are logged and left out of the result. With no test data
// every requested metric scores 0 and the model is never called. Each item is answered once
// and the answer is shared by all metrics.
func (c *Calculator) CalculateMetrics(ctx context.Context, model Generator, testData []api.TestDataItem, names []string) (api.MetricScores, error) {
	if len(names) == 0 {
		names = Names()
	}

	var selected []string
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if !IsKnown(name) {
			c.logger.Warn("skipping metric", "metric", name, "error", api.ErrUnknownMetric)
			continue
		}
		if _, ok := c.scorers[name]; !ok {
			c.logger.Warn("skipping metric without a scorer", "metric", name)
			continue
		}
		selected = append(selected, name)
	}

	scores := make(api.MetricScores, len(selected))
	for _, name := range selected {
		scores[name] = 0
	}
	if len(testData) == 0 || len(selected) == 0 {
		return scores, nil
	}

	sums := make(map[string]float64, len(selected))
	for i, item := range testData {
		answer, err := model.GenerateResponse(ctx, item.Question, item.Context)
		if err != nil {
			return nil, fmt.Errorf("generate answer for item %d: %w", i, err)
		}

		in := api.ScoreInputs{
			Input:    item.Question,
			Output:   answer,
			Context:  item.Context,
			Expected: item.GroundTruth,
		}
		for _, name := range selected {
			result := c.scorers[name].Score(ctx, in)
			if result.Error != nil {
				return nil, fmt.Errorf("metric %s on item %d: %w", name, i, result.Error)
			}
			score := clamp(result.Score)
			if score != result.Score {
				c.logger.Warn("scorer returned out-of-range score", "metric", name, "item", i, "raw_score", result.Score, "clamped", score)
			}
			sums[name] += score
		}
		c.logger.Debug("scored test item", "item", i, "of", len(testData))
	}

	for _, name := range selected {
		scores[name] = sums[name] / float64(len(testData))
	}
	return scores, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
