package api

import (
	"context"
	"time"
)

// Task types understood by the challenger selector.
const (
	TaskQA            = "qa"
	TaskSummarization = "summarization"
	TaskReasoning     = "reasoning"
)

// Provider tags.
const (
	ProviderAzure   = "azure"
	ProviderBedrock = "bedrock"
)

// Metric names.
const (
	MetricFaithfulness       = "faithfulness"
	MetricContextUtilization = "context_utilization"
	MetricAnswerRelevancy    = "answer_relevancy"
	MetricContextRecall      = "context_recall"
	// MetricAnswerSimilarity compares the answer with the ground truth
	MetricAnswerSimilarity = "answer_similarity"
)

// ModelProvider is a text-generation model that can also synthesize test data.
// Implementations are provided in the azure and bedrock packages.
type ModelProvider interface {
	// Name identifies the model, e.g. "azure:gpt-4".
	Name() string

	// GenerateResponse issues one generation call. An empty context means no context.
	GenerateResponse(ctx context.Context, prompt, context string) (string, error)

	// BatchGenerate calls GenerateResponse for every prompt in order.
	// contexts is either nil or the same length as prompts. The first failure aborts the batch.
	BatchGenerate(ctx context.Context, prompts, contexts []string) ([]string, error)

	// GenerateTestData synthesizes one TestDataItem per development example, preserving order.
	GenerateTestData(ctx context.Context, examples []DevelopmentExample) ([]TestDataItem, error)
}

// Record is a raw development record as read from storage.
type Record = map[string]any

// DevelopmentExample is a validated seed example.
type DevelopmentExample struct {
	Context  string `json:"context" yaml:"context"`
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// TestDataItem is a synthetic example derived from a DevelopmentExample.
type TestDataItem struct {
	Context          string `json:"context"`
	Question         string `json:"question"`
	GroundTruth      string `json:"ground_truth"`
	OriginalQuestion string `json:"original_question"`
	OriginalAnswer   string `json:"original_answer"`
	// Flagged lists moderation categories raised on the synthetic content.
	Flagged []string `json:"flagged,omitempty"`
}

// MetricScores maps metric name to score.
type MetricScores map[string]float64

// ComparisonEntry compares one metric between the original and the challenger.
type ComparisonEntry struct {
	Difference          float64 `json:"difference"`
	RelativeImprovement float64 `json:"relative_improvement"`
	// ZeroBaseline is set when the original score is exactly 0 and
	// RelativeImprovement is therefore undefined (reported as 0).
	ZeroBaseline bool `json:"zero_baseline,omitempty"`
}

// Compare builds the comparison entry for a pair of scores.
func Compare(original, challenger float64) ComparisonEntry {
	entry := ComparisonEntry{Difference: challenger - original}
	if original == 0 {
		entry.ZeroBaseline = true
		return entry
	}
	entry.RelativeImprovement = entry.Difference / original
	return entry
}

// ModelSpec is one row of the challenger table.
type ModelSpec struct {
	ModelID        string  `json:"model" yaml:"model"`
	Provider       string  `json:"provider" yaml:"provider"`
	BenchmarkScore float64 `json:"benchmark_score" yaml:"benchmark_score"`
	BenchmarkName  string  `json:"benchmark_name" yaml:"benchmark_name"`
}

// BenchmarkInfo describes the benchmark backing a challenger choice.
type BenchmarkInfo struct {
	Model          string `json:"model"`
	Provider       string `json:"provider"`
	BenchmarkName  string `json:"benchmark_name"`
	BenchmarkScore string `json:"benchmark_score"`
}

// ValidationResult aggregates one validation run.
type ValidationResult struct {
	TaskType          string                     `json:"task_type,omitempty"`
	OriginalModel     string                     `json:"original_model,omitempty"`
	ChallengerModel   string                     `json:"challenger_model,omitempty"`
	Metrics           []string                   `json:"metrics"`
	OriginalMetrics   MetricScores               `json:"original_metrics"`
	ChallengerMetrics MetricScores               `json:"challenger_metrics"`
	Comparison        map[string]ComparisonEntry `json:"comparison_metrics"`
	TestData          []TestDataItem             `json:"test_data,omitempty"`
	Benchmark         *BenchmarkInfo             `json:"benchmark,omitempty"`
	GeneratedAt       time.Time                  `json:"generated_at"`
}

// AWSCredentials are static AWS credentials as stored in credential files.
type AWSCredentials struct {
	AccessKey    string `json:"access_key" yaml:"access_key"`
	SecretKey    string `json:"secret_key" yaml:"secret_key"`
	SessionToken string `json:"session_token,omitempty" yaml:"session_token,omitempty"`
	Region       string `json:"region,omitempty" yaml:"region,omitempty"`
}

// DefaultAzureAPIVersion is used when AzureCredentials.APIVersion is empty.
const DefaultAzureAPIVersion = "2024-02-15-preview"

// AzureCredentials are Azure OpenAI credentials as stored in credential files.
type AzureCredentials struct {
	APIKey     string `json:"api_key" yaml:"api_key"`
	APIBase    string `json:"api_base" yaml:"api_base"`
	APIVersion string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
}
