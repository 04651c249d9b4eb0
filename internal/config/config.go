// Package config provides the CLI run configuration and the credential file loaders.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/metrics"
)

// Judge kinds selecting the metric scorers.
const (
	JudgeLexical = "lexical"
	JudgeGemini  = "gemini"
	JudgeAzure   = "azure"
	JudgeBedrock = "bedrock"
)

// Defaults for a run.
const (
	DefaultJudge          = JudgeLexical
	DefaultJudgeModel     = "gemini-2.5-flash"
	DefaultEmbeddingModel = "text-embedding-005"
	DefaultConcurrency    = 1
	DefaultMaxRetries     = 3
	DefaultFormat         = "text"
	DefaultTimeout        = 30 * time.Minute
	DefaultGeminiLocation = "us-central1"
)

// ModelConfig names the model under validation.
type ModelConfig struct {
	Provider string `yaml:"provider,omitempty"`
	ModelID  string `yaml:"model_id,omitempty"`
}

// DataConfig locates the development data: an S3 prefix or a local file.
type DataConfig struct {
	S3Bucket       string `yaml:"s3_bucket,omitempty"`
	S3Prefix       string `yaml:"s3_prefix,omitempty"`
	S3Region       string `yaml:"s3_region,omitempty"`
	S3Endpoint     string `yaml:"s3_endpoint,omitempty"`
	S3UsePathStyle bool   `yaml:"s3_use_path_style,omitempty"`
	File           string `yaml:"file,omitempty"`
}

// CredentialsConfig points at the JSON credential files.
type CredentialsConfig struct {
	AWSFile   string `yaml:"aws_file,omitempty"`
	AzureFile string `yaml:"azure_file,omitempty"`
}

// JudgeConfig selects how metrics are scored.
type JudgeConfig struct {
	// Kind is one of lexical, gemini, azure or bedrock
	Kind string `yaml:"kind,omitempty"`
	// Model is the judge model: a Gemini model, an Azure deployment or a Bedrock model id
	Model string `yaml:"model,omitempty"`
	// EmbeddingModel is the Gemini embedding model used for answer relevancy with the gemini judge
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
	// Project and Location address Vertex AI for the gemini judge
	Project  string `yaml:"project,omitempty"`
	Location string `yaml:"location,omitempty"`
}

// Config is the configuration of one validation run, loaded from YAML and overridden by flags.
type Config struct {
	TaskType    string            `yaml:"task_type,omitempty"`
	Original    ModelConfig       `yaml:"original,omitempty"`
	Data        DataConfig        `yaml:"data,omitempty"`
	Credentials CredentialsConfig `yaml:"credentials,omitempty"`
	Metrics     []string          `yaml:"metrics,omitempty"`
	Judge       JudgeConfig       `yaml:"judge,omitempty"`
	Concurrency int               `yaml:"concurrency,omitempty"`
	MaxRetries  int               `yaml:"max_retries,omitempty"`
	// Moderate screens synthetic test data with the Google Cloud Natural Language API
	Moderate bool          `yaml:"moderate,omitempty"`
	Format   string        `yaml:"format,omitempty"`
	Output   string        `yaml:"output,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	// Challengers replaces the built-in task to challenger table
	Challengers map[string]api.ModelSpec `yaml:"challengers,omitempty"`
}

// New returns a Config with defaults populated.
func New() *Config {
	return &Config{
		Metrics: metrics.DefaultNames(),
		Judge: JudgeConfig{
			Kind:           DefaultJudge,
			EmbeddingModel: DefaultEmbeddingModel,
			Location:       DefaultGeminiLocation,
		},
		Concurrency: DefaultConcurrency,
		MaxRetries:  DefaultMaxRetries,
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields a validation run cannot do without.
func (c *Config) Validate() error {
	var errs []error

	switch c.TaskType {
	case api.TaskQA, api.TaskSummarization, api.TaskReasoning:
	case "":
		errs = append(errs, errors.New("task type is required"))
	default:
		if _, ok := c.Challengers[c.TaskType]; !ok {
			errs = append(errs, fmt.Errorf("%w: %q", api.ErrUnknownTaskType, c.TaskType))
		}
	}

	switch c.Original.Provider {
	case api.ProviderAzure, api.ProviderBedrock:
	case "":
		errs = append(errs, errors.New("original model provider is required"))
	default:
		errs = append(errs, fmt.Errorf("%w: %q (want azure or bedrock)", api.ErrUnknownProvider, c.Original.Provider))
	}
	if strings.TrimSpace(c.Original.ModelID) == "" {
		errs = append(errs, errors.New("original model id is required"))
	}

	if c.Data.S3Bucket == "" && c.Data.File == "" {
		errs = append(errs, errors.New("development data is required: set an S3 bucket or a data file"))
	}

	if !slices.Contains([]string{JudgeLexical, JudgeGemini, JudgeAzure, JudgeBedrock}, c.Judge.Kind) {
		errs = append(errs, fmt.Errorf("unknown judge %q (want lexical, gemini, azure or bedrock)", c.Judge.Kind))
	}
	if !slices.Contains([]string{"text", "json", "html"}, c.Format) {
		errs = append(errs, fmt.Errorf("unknown format %q (want text, json or html)", c.Format))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}

	return errors.Join(errs...)
}

// ParseMetrics splits a comma-separated metric list, trimming blanks.
func ParseMetrics(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// LoadAWSCredentials reads {access_key, secret_key[, session_token, region]} from a JSON file.
func LoadAWSCredentials(path string) (*api.AWSCredentials, error) {
	var creds api.AWSCredentials
	if err := readJSON(path, &creds); err != nil {
		return nil, fmt.Errorf("aws credentials: %w", err)
	}
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return nil, fmt.Errorf("%w: %s must set access_key and secret_key", api.ErrMissingCredentials, path)
	}
	return &creds, nil
}

// LoadAzureCredentials reads {api_key, api_base[, api_version]} from a JSON file.
func LoadAzureCredentials(path string) (*api.AzureCredentials, error) {
	var creds api.AzureCredentials
	if err := readJSON(path, &creds); err != nil {
		return nil, fmt.Errorf("azure credentials: %w", err)
	}
	if creds.APIKey == "" || creds.APIBase == "" {
		return nil, fmt.Errorf("%w: %s must set api_key and api_base", api.ErrMissingCredentials, path)
	}
	if creds.APIVersion == "" {
		creds.APIVersion = api.DefaultAzureAPIVersion
	}
	return &creds, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
