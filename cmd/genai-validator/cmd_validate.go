package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/challenger"
	"github.com/datar-psa/genaivalidator/data"
	"github.com/datar-psa/genaivalidator/internal/config"
	"github.com/datar-psa/genaivalidator/metrics"
	"github.com/datar-psa/genaivalidator/report"
	"github.com/datar-psa/genaivalidator/retry"
	"github.com/datar-psa/genaivalidator/synth"
	"github.com/datar-psa/genaivalidator/validator"
)

// validateFlags holds the raw flag values; only flags set on the command line override the config file.
type validateFlags struct {
	taskType             string
	originalProvider     string
	originalModelID      string
	s3Bucket             string
	s3Prefix             string
	s3Region             string
	s3Endpoint           string
	dataFile             string
	awsCredentialsFile   string
	azureCredentialsFile string
	metrics              string
	judge                string
	judgeModel           string
	embeddingModel       string
	geminiProject        string
	geminiLocation       string
	concurrency          int
	maxRetries           int
	moderate             bool
	format               string
	output               string
	timeout              time.Duration
}

func newValidateCommand() *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a validation comparing the original model against its challenger",
		Long: `Validate loads development examples from S3 (or a local file), synthesizes test
data with the challenger chosen for the task type, scores both models on it and
prints the comparison report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), &flags, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			out, err := runValidation(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			if cfg.Output != "" {
				if err := os.WriteFile(cfg.Output, out, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				slog.Info("report written", "path", cfg.Output)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.taskType, "task-type", "", "Task type: qa, summarization or reasoning (required)")
	f.StringVar(&flags.originalProvider, "original-model-provider", "", "Provider of the original model: bedrock or azure (required)")
	f.StringVar(&flags.originalModelID, "original-model-id", "", "Model ID or deployment name of the original model (required)")
	f.StringVar(&flags.s3Bucket, "s3-bucket", "", "S3 bucket containing development data")
	f.StringVar(&flags.s3Prefix, "s3-prefix", "", "Prefix (folder path) in the S3 bucket")
	f.StringVar(&flags.s3Region, "s3-region", "", "AWS region of the S3 bucket")
	f.StringVar(&flags.s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint, e.g. for MinIO (implies path-style addressing)")
	f.StringVar(&flags.dataFile, "data-file", "", "Local .json, .jsonl or .yaml development data instead of S3")
	f.StringVar(&flags.awsCredentialsFile, "aws-credentials-file", "", "JSON file with access_key and secret_key")
	f.StringVar(&flags.azureCredentialsFile, "azure-credentials-file", "", "JSON file with api_key, api_base and api_version")
	f.StringVar(&flags.metrics, "metrics", strings.Join(metrics.DefaultNames(), ","), "Comma-separated list of metrics to evaluate")
	f.StringVar(&flags.judge, "judge", config.DefaultJudge, "Metric backend: lexical, gemini, azure or bedrock")
	f.StringVar(&flags.judgeModel, "judge-model", "", "Judge model (Gemini model, Azure deployment or Bedrock model id)")
	f.StringVar(&flags.embeddingModel, "embedding-model", config.DefaultEmbeddingModel, "Gemini embedding model for answer relevancy")
	f.StringVar(&flags.geminiProject, "gemini-project", "", "Google Cloud project for the gemini judge and moderation")
	f.StringVar(&flags.geminiLocation, "gemini-location", config.DefaultGeminiLocation, "Vertex AI location for the gemini judge")
	f.IntVar(&flags.concurrency, "concurrency", config.DefaultConcurrency, "Examples synthesized in parallel")
	f.IntVar(&flags.maxRetries, "max-retries", config.DefaultMaxRetries, "Retries for throttled or failed model calls (0 disables)")
	f.BoolVar(&flags.moderate, "moderate", false, "Screen synthetic test data with the Cloud Natural Language API")
	f.StringVar(&flags.format, "format", config.DefaultFormat, "Report format: text, json or html")
	f.StringVarP(&flags.output, "output", "o", "", "Write the report to this file instead of stdout")
	f.DurationVar(&flags.timeout, "timeout", config.DefaultTimeout, "Overall timeout for the run")

	return cmd
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(fs *pflag.FlagSet, flags *validateFlags, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}

	set("task-type", func() { cfg.TaskType = strings.ToLower(flags.taskType) })
	set("original-model-provider", func() { cfg.Original.Provider = strings.ToLower(flags.originalProvider) })
	set("original-model-id", func() { cfg.Original.ModelID = flags.originalModelID })
	set("s3-bucket", func() { cfg.Data.S3Bucket = flags.s3Bucket })
	set("s3-prefix", func() { cfg.Data.S3Prefix = flags.s3Prefix })
	set("s3-region", func() { cfg.Data.S3Region = flags.s3Region })
	set("s3-endpoint", func() {
		cfg.Data.S3Endpoint = flags.s3Endpoint
		cfg.Data.S3UsePathStyle = true
	})
	set("data-file", func() { cfg.Data.File = flags.dataFile })
	set("aws-credentials-file", func() { cfg.Credentials.AWSFile = flags.awsCredentialsFile })
	set("azure-credentials-file", func() { cfg.Credentials.AzureFile = flags.azureCredentialsFile })
	set("metrics", func() { cfg.Metrics = config.ParseMetrics(flags.metrics) })
	set("judge", func() { cfg.Judge.Kind = strings.ToLower(flags.judge) })
	set("judge-model", func() { cfg.Judge.Model = flags.judgeModel })
	set("embedding-model", func() { cfg.Judge.EmbeddingModel = flags.embeddingModel })
	set("gemini-project", func() { cfg.Judge.Project = flags.geminiProject })
	set("gemini-location", func() { cfg.Judge.Location = flags.geminiLocation })
	set("concurrency", func() { cfg.Concurrency = flags.concurrency })
	set("max-retries", func() { cfg.MaxRetries = flags.maxRetries })
	set("moderate", func() { cfg.Moderate = flags.moderate })
	set("format", func() { cfg.Format = strings.ToLower(flags.format) })
	set("output", func() { cfg.Output = flags.output })
	set("timeout", func() { cfg.Timeout = flags.timeout })
}

// runValidation executes a validation run and returns the rendered report.
func runValidation(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	synthOpts := []func(*synth.Options){
		synth.WithConcurrency(cfg.Concurrency),
		synth.WithLogger(logger),
	}
	if cfg.Moderate {
		moderator, closeFn, err := newModerator(ctx)
		if err != nil {
			return nil, err
		}
		defer closeFn()
		synthOpts = append(synthOpts, synth.WithModerator(moderator, synth.DefaultModerationThreshold))
	}
	retryCfg := retry.Config{MaxRetries: uint64(cfg.MaxRetries), Logger: logger, SynthOptions: synthOpts}

	original, err := newProvider(ctx, api.ModelSpec{ModelID: cfg.Original.ModelID, Provider: cfg.Original.Provider}, creds, synthOpts)
	if err != nil {
		return nil, fmt.Errorf("original model: %w", err)
	}
	original = retry.Wrap(original, retryCfg)

	factory := func(ctx context.Context, spec api.ModelSpec, creds challenger.Credentials) (api.ModelProvider, error) {
		p, err := newProvider(ctx, spec, creds, synthOpts)
		if err != nil {
			return nil, err
		}
		return retry.Wrap(p, retryCfg), nil
	}
	selector := newSelector(cfg,
		challenger.WithFactory(api.ProviderAzure, factory),
		challenger.WithFactory(api.ProviderBedrock, factory),
	)

	scorers, err := newScorers(ctx, cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	calculator := metrics.New(metrics.WithScorers(scorers), metrics.WithLogger(logger))

	v, err := validator.New(ctx, original,
		validator.WithTaskType(cfg.TaskType),
		validator.WithSelector(selector),
		validator.WithCredentials(creds),
		validator.WithCalculator(calculator),
		validator.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	examples, err := loadExamples(ctx, cfg, creds.AWS, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded development examples", "count", len(examples))

	result, err := v.Validate(ctx, examples, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	return report.Render(result, cfg.Format)
}

func loadCredentials(cfg *config.Config) (challenger.Credentials, error) {
	var creds challenger.Credentials
	if cfg.Credentials.AWSFile != "" {
		aws, err := config.LoadAWSCredentials(cfg.Credentials.AWSFile)
		if err != nil {
			return creds, err
		}
		creds.AWS = aws
	}
	if cfg.Credentials.AzureFile != "" {
		azure, err := config.LoadAzureCredentials(cfg.Credentials.AzureFile)
		if err != nil {
			return creds, err
		}
		creds.Azure = azure
	}
	return creds, nil
}

func loadExamples(ctx context.Context, cfg *config.Config, awsCreds *api.AWSCredentials, logger *slog.Logger) ([]api.DevelopmentExample, error) {
	var (
		records []api.Record
		err     error
	)
	if cfg.Data.File != "" {
		records, err = data.LoadFile(cfg.Data.File)
	} else {
		var extractor *data.S3Extractor
		extractor, err = newExtractor(ctx, data.S3Config{
			Bucket:       cfg.Data.S3Bucket,
			Prefix:       cfg.Data.S3Prefix,
			Region:       cfg.Data.S3Region,
			Credentials:  awsCreds,
			Endpoint:     cfg.Data.S3Endpoint,
			UsePathStyle: cfg.Data.S3UsePathStyle,
		}, data.WithLogger(logger))
		if err == nil {
			records, err = extractor.Extract(ctx)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load development data: %w", err)
	}
	return data.ParseExamples(records)
}
