// Package validator compares an original model against a challenger on synthetic test data.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/challenger"
	"github.com/datar-psa/genaivalidator/heuristic"
	"github.com/datar-psa/genaivalidator/metrics"
)

// Calculator scores a model over test data. *metrics.Calculator satisfies it.
type Calculator interface {
	CalculateMetrics(ctx context.Context, model metrics.Generator, testData []api.TestDataItem, names []string) (api.MetricScores, error)
}

// Options configures a Validator
type Options struct {
	challenger  api.ModelProvider
	taskType    string
	credentials challenger.Credentials
	selector    *challenger.Selector
	calculator  Calculator
	logger      *slog.Logger
	now         func() time.Time
}

// WithChallenger uses p as the challenger instead of asking the selector
func WithChallenger(p api.ModelProvider) func(*Options) {
	return func(opts *Options) {
		opts.challenger = p
	}
}

// WithTaskType sets the task type used to select the challenger (default "qa")
func WithTaskType(task string) func(*Options) {
	return func(opts *Options) {
		opts.taskType = task
	}
}

// WithCredentials supplies the credentials the selected challenger needs
func WithCredentials(creds challenger.Credentials) func(*Options) {
	return func(opts *Options) {
		opts.credentials = creds
	}
}

// WithSelector overrides the challenger selector
func WithSelector(s *challenger.Selector) func(*Options) {
	return func(opts *Options) {
		opts.selector = s
	}
}

// WithCalculator sets the metrics calculator. Without it the offline token-overlap scorers
// from heuristic.Scorers are used.
func WithCalculator(c Calculator) func(*Options) {
	return func(opts *Options) {
		opts.calculator = c
	}
}

// WithLogger sets the logger used for progress messages
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(opts *Options) {
		opts.logger = logger
	}
}

// Validator runs the validation pipeline. It holds no per-run state and may be reused.
type Validator struct {
	original   api.ModelProvider
	challenger api.ModelProvider
	taskType   string
	selector   *challenger.Selector
	// selected is set when the selector built the challenger
	selected   bool
	calculator Calculator
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Validator for original. When no challenger is supplied the selector picks
// one for the task type, and its error (unknown task, missing credentials) is returned.
func New(ctx context.Context, original api.ModelProvider, opts ...func(*Options)) (*Validator, error) {
	if original == nil {
		return nil, fmt.Errorf("original model is required")
	}

	options := Options{taskType: api.TaskQA, now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.calculator == nil {
		options.calculator = metrics.New(metrics.WithScorers(heuristic.Scorers()), metrics.WithLogger(options.logger))
	}
	if options.selector == nil {
		options.selector = challenger.NewSelector(options.taskType)
	}

	v := &Validator{
		original:   original,
		challenger: options.challenger,
		taskType:   options.selector.Task(),
		selector:   options.selector,
		calculator: options.calculator,
		logger:     options.logger,
		now:        options.now,
	}

	if v.challenger == nil {
		c, err := options.selector.GetBestModel(ctx, options.credentials)
		if err != nil {
			return nil, fmt.Errorf("select challenger: %w", err)
		}
		v.challenger = c
		v.selected = true
	}
	return v, nil
}

// Challenger returns the model the original is compared against.
func (v *Validator) Challenger() api.ModelProvider {
	return v.challenger
}

// Validate synthesizes test data from examples with the challenger, scores both models on
// it and compares them per metric. An empty metricNames selects metrics.DefaultNames().
func (v *Validator) Validate(ctx context.Context, examples []api.DevelopmentExample, metricNames []string) (*api.ValidationResult, error) {
	if len(metricNames) == 0 {
		metricNames = metrics.DefaultNames()
	}

	v.logger.Info("generating test data", "challenger", v.challenger.Name(), "examples", len(examples))
	testData, err := v.challenger.GenerateTestData(ctx, examples)
	if err != nil {
		return nil, fmt.Errorf("generate test data: %w", err)
	}

	v.logger.Info("scoring original model", "model", v.original.Name(), "items", len(testData))
	originalScores, err := v.calculator.CalculateMetrics(ctx, v.original, testData, metricNames)
	if err != nil {
		return nil, fmt.Errorf("score original model: %w", err)
	}

	v.logger.Info("scoring challenger model", "model", v.challenger.Name(), "items", len(testData))
	challengerScores, err := v.calculator.CalculateMetrics(ctx, v.challenger, testData, metricNames)
	if err != nil {
		return nil, fmt.Errorf("score challenger model: %w", err)
	}

	result := &api.ValidationResult{
		TaskType:          v.taskType,
		OriginalModel:     v.original.Name(),
		ChallengerModel:   v.challenger.Name(),
		Metrics:           metricNames,
		OriginalMetrics:   originalScores,
		ChallengerMetrics: challengerScores,
		Comparison:        Compare(metricNames, originalScores, challengerScores),
		TestData:          testData,
		GeneratedAt:       v.now().UTC(),
	}

	result.Benchmark = v.benchmark()
	return result, nil
}

// benchmark returns the selector's benchmark info when it describes the challenger in use.
func (v *Validator) benchmark() *api.BenchmarkInfo {
	spec, err := v.selector.Spec()
	if err != nil {
		v.logger.Debug("no benchmark info", "task", v.taskType, "error", err)
		return nil
	}
	if !v.selected && v.challenger.Name() != spec.Provider+":"+spec.ModelID {
		v.logger.Debug("challenger is not the benchmarked model", "challenger", v.challenger.Name(), "benchmarked", spec.ModelID)
		return nil
	}
	info, err := v.selector.GetBenchmarkInfo()
	if err != nil {
		v.logger.Debug("no benchmark info", "task", v.taskType, "error", err)
		return nil
	}
	return &info
}

// Compare builds a comparison entry for each metric present in both score maps.
func Compare(names []string, original, challenger api.MetricScores) map[string]api.ComparisonEntry {
	comparison := make(map[string]api.ComparisonEntry, len(names))
	for _, name := range names {
		o, ok := original[name]
		if !ok {
			continue
		}
		c, ok := challenger[name]
		if !ok {
			continue
		}
		comparison[name] = api.Compare(o, c)
	}
	return comparison
}
