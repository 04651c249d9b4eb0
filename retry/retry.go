// Package retry wraps a model provider so that transient failures are retried with backoff.
package retry

import (
	"context"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/synth"
)

const (
	// DefaultBaseDelay is the first backoff interval when Config.BaseDelay is zero.
	DefaultBaseDelay = 500 * time.Millisecond
	// MaxDelay caps a single backoff interval.
	MaxDelay = 30 * time.Second
)

// Config controls the retry policy.
type Config struct {
	// MaxRetries is the number of retries after the first attempt; 0 disables retrying
	MaxRetries uint64
	// BaseDelay is the first backoff interval, doubled on every retry
	BaseDelay time.Duration
	// Logger receives a debug line per retry
	Logger *slog.Logger
	// SynthOptions configure the test-data synthesis recomputed on top of the retrying calls
	SynthOptions []func(*synth.Options)
}

// Provider retries GenerateResponse on errors reported retryable by api.IsRetryable.
type Provider struct {
	next   api.ModelProvider
	cfg    Config
	synth  *synth.Synthesizer
	logger *slog.Logger
}

// Wrap returns p decorated with retries. With cfg.MaxRetries == 0 p is returned unchanged.
func Wrap(p api.ModelProvider, cfg Config) api.ModelProvider {
	if cfg.MaxRetries == 0 || p == nil {
		return p
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Provider{next: p, cfg: cfg, logger: logger}
	r.synth = synth.New(r, cfg.SynthOptions...)
	return r
}

func (r *Provider) Name() string {
	return r.next.Name()
}

// Unwrap returns the decorated provider.
func (r *Provider) Unwrap() api.ModelProvider {
	return r.next
}

func (r *Provider) backoff() goretry.Backoff {
	b := goretry.NewExponential(r.cfg.BaseDelay)
	b = goretry.WithCappedDuration(MaxDelay, b)
	return goretry.WithMaxRetries(r.cfg.MaxRetries, b)
}

// GenerateResponse calls the wrapped provider, retrying retryable failures.
func (r *Provider) GenerateResponse(ctx context.Context, prompt, promptContext string) (string, error) {
	var response string
	attempt := 0
	err := goretry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempt++
		out, err := r.next.GenerateResponse(ctx, prompt, promptContext)
		if err != nil {
			if api.IsRetryable(err) {
				r.logger.Debug("retrying model call", "model", r.next.Name(), "attempt", attempt, "error", err)
				return goretry.RetryableError(err)
			}
			return err
		}
		response = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return response, nil
}

func (r *Provider) BatchGenerate(ctx context.Context, prompts, contexts []string) ([]string, error) {
	return r.synth.BatchGenerate(ctx, prompts, contexts)
}

func (r *Provider) GenerateTestData(ctx context.Context, examples []api.DevelopmentExample) ([]api.TestDataItem, error) {
	return r.synth.GenerateTestData(ctx, examples)
}

var _ api.ModelProvider = (*Provider)(nil)
