// Package challenger picks the reference challenger model for a task type.
package challenger

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/azure"
	"github.com/datar-psa/genaivalidator/bedrock"
	"github.com/datar-psa/genaivalidator/synth"
)

// Credentials carries the provider credentials a challenger may need. A nil field means
// the credentials were not supplied.
type Credentials struct {
	AWS   *api.AWSCredentials
	Azure *api.AzureCredentials
}

// Factory builds a provider for spec. creds holds the credentials of spec.Provider.
type Factory func(ctx context.Context, spec api.ModelSpec, creds Credentials) (api.ModelProvider, error)

// DefaultModels returns a fresh copy of the task to challenger table.
func DefaultModels() map[string]api.ModelSpec {
	return map[string]api.ModelSpec{
		api.TaskQA: {
			ModelID:        "gpt-4",
			Provider:       api.ProviderAzure,
			BenchmarkScore: 0.92,
			BenchmarkName:  "SQuAD 2.0",
		},
		api.TaskSummarization: {
			ModelID:        "anthropic.claude-v2",
			Provider:       api.ProviderBedrock,
			BenchmarkScore: 0.89,
			BenchmarkName:  "ROUGE-L on CNN/DailyMail",
		},
		api.TaskReasoning: {
			ModelID:        "gpt-4",
			Provider:       api.ProviderAzure,
			BenchmarkScore: 0.90,
			BenchmarkName:  "GSM8K",
		},
	}
}

// Options configures a Selector
type Options struct {
	models    map[string]api.ModelSpec
	factories map[string]Factory
	synthOpts []func(*synth.Options)
}

// WithModels replaces the task table. The map is copied.
func WithModels(models map[string]api.ModelSpec) func(*Options) {
	return func(opts *Options) {
		opts.models = make(map[string]api.ModelSpec, len(models))
		for task, spec := range models {
			opts.models[strings.ToLower(task)] = spec
		}
	}
}

// WithFactory registers the constructor used for provider.
func WithFactory(provider string, f Factory) func(*Options) {
	return func(opts *Options) {
		opts.factories[provider] = f
	}
}

// WithSynthOptions configures test-data synthesis on challengers built by the default factories
func WithSynthOptions(opts ...func(*synth.Options)) func(*Options) {
	return func(o *Options) {
		o.synthOpts = append(o.synthOpts, opts...)
	}
}

// Selector resolves the challenger for one task type. The table is never modified after construction.
type Selector struct {
	task      string
	models    map[string]api.ModelSpec
	factories map[string]Factory
}

// NewSelector creates a Selector for task. The task tag is case-insensitive; an unknown tag
// is reported by GetBestModel and GetBenchmarkInfo.
func NewSelector(task string, opts ...func(*Options)) *Selector {
	options := Options{factories: map[string]Factory{}}
	for _, opt := range opts {
		opt(&options)
	}
	if options.models == nil {
		options.models = DefaultModels()
	}

	synthOpts := options.synthOpts
	if _, ok := options.factories[api.ProviderAzure]; !ok {
		options.factories[api.ProviderAzure] = func(ctx context.Context, spec api.ModelSpec, creds Credentials) (api.ModelProvider, error) {
			return azure.New(spec.ModelID, *creds.Azure, azure.WithSynthOptions(synthOpts...))
		}
	}
	if _, ok := options.factories[api.ProviderBedrock]; !ok {
		options.factories[api.ProviderBedrock] = func(ctx context.Context, spec api.ModelSpec, creds Credentials) (api.ModelProvider, error) {
			return bedrock.New(ctx, spec.ModelID, creds.AWS, bedrock.WithSynthOptions(synthOpts...))
		}
	}

	return &Selector{
		task:      strings.ToLower(strings.TrimSpace(task)),
		models:    options.models,
		factories: options.factories,
	}
}

// Task returns the normalized task tag.
func (s *Selector) Task() string {
	return s.task
}

// Tasks returns the known task tags, sorted.
func (s *Selector) Tasks() []string {
	tasks := make([]string, 0, len(s.models))
	for task := range s.models {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	return tasks
}

// Spec returns the table row for the selector's task.
func (s *Selector) Spec() (api.ModelSpec, error) {
	spec, ok := s.models[s.task]
	if !ok {
		return api.ModelSpec{}, fmt.Errorf("%w: %q (available tasks: %s)", api.ErrUnknownTaskType, s.task, strings.Join(s.Tasks(), ", "))
	}
	return spec, nil
}

// GetBestModel builds the challenger for the task.
// It fails with ErrUnknownTaskType, ErrMissingCredentials or ErrUnknownProvider before any client is created.
func (s *Selector) GetBestModel(ctx context.Context, creds Credentials) (api.ModelProvider, error) {
	spec, err := s.Spec()
	if err != nil {
		return nil, err
	}

	switch spec.Provider {
	case api.ProviderAzure:
		if creds.Azure == nil {
			return nil, fmt.Errorf("%w: azure credentials required for challenger %s", api.ErrMissingCredentials, spec.ModelID)
		}
	case api.ProviderBedrock:
		if creds.AWS == nil {
			return nil, fmt.Errorf("%w: aws credentials required for challenger %s", api.ErrMissingCredentials, spec.ModelID)
		}
	}

	factory, ok := s.factories[spec.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", api.ErrUnknownProvider, spec.Provider)
	}

	provider, err := factory(ctx, spec, creds)
	if err != nil {
		return nil, fmt.Errorf("create challenger %s: %w", spec.ModelID, err)
	}
	return provider, nil
}

// GetBenchmarkInfo describes the challenger and the benchmark it was chosen on.
func (s *Selector) GetBenchmarkInfo() (api.BenchmarkInfo, error) {
	spec, err := s.Spec()
	if err != nil {
		return api.BenchmarkInfo{}, err
	}
	return api.BenchmarkInfo{
		Model:          spec.ModelID,
		Provider:       spec.Provider,
		BenchmarkName:  spec.BenchmarkName,
		BenchmarkScore: strconv.FormatFloat(spec.BenchmarkScore, 'f', -1, 64),
	}, nil
}
