// Package bedrock implements a model provider on AWS Bedrock foundation models.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	"github.com/kaptinlin/jsonrepair"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/internal/awsconfig"
	"github.com/datar-psa/genaivalidator/synth"
)

const (
	// DefaultRegion is used when neither the credentials nor WithRegion name one.
	DefaultRegion = awsconfig.DefaultRegion

	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
)

// legacyModels are text-completion Claude models served through InvokeModel.
var legacyModels = []string{"anthropic.claude-v2", "anthropic.claude-instant"}

// RuntimeClient is the subset of *bedrockruntime.Client used by Model.
type RuntimeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures a Model
type Options struct {
	client      RuntimeClient
	region      string
	endpoint    string
	maxTokens   int
	temperature float32
	synthOpts   []func(*synth.Options)
}

// WithClient replaces the Bedrock runtime client, mainly for tests
func WithClient(client RuntimeClient) func(*Options) {
	return func(opts *Options) {
		opts.client = client
	}
}

// WithRegion overrides the AWS region
func WithRegion(region string) func(*Options) {
	return func(opts *Options) {
		opts.region = region
	}
}

// WithEndpoint points the runtime client at a custom endpoint
func WithEndpoint(endpoint string) func(*Options) {
	return func(opts *Options) {
		opts.endpoint = endpoint
	}
}

// WithMaxTokens sets the completion token limit (default 1000)
func WithMaxTokens(n int) func(*Options) {
	return func(opts *Options) {
		opts.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature (default 0.7)
func WithTemperature(t float32) func(*Options) {
	return func(opts *Options) {
		opts.temperature = t
	}
}

// WithSynthOptions configures test-data synthesis
func WithSynthOptions(opts ...func(*synth.Options)) func(*Options) {
	return func(o *Options) {
		o.synthOpts = append(o.synthOpts, opts...)
	}
}

// Model is a Bedrock foundation model addressed by model id.
type Model struct {
	client      RuntimeClient
	modelID     string
	maxTokens   int
	temperature float32
	synth       *synth.Synthesizer
}

// New creates a Model for modelID.
// With nil creds the default AWS credential chain is used (environment, shared config, IAM role).
func New(ctx context.Context, modelID string, creds *api.AWSCredentials, opts ...func(*Options)) (*Model, error) {
	if strings.TrimSpace(modelID) == "" {
		return nil, errors.New("bedrock: model id is required")
	}

	options := Options{maxTokens: defaultMaxTokens, temperature: defaultTemperature}
	for _, opt := range opts {
		opt(&options)
	}

	client := options.client
	if client == nil {
		awsCfg, err := awsconfig.Load(ctx, creds, options.region)
		if err != nil {
			return nil, fmt.Errorf("bedrock: %w", err)
		}
		client = bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if options.endpoint != "" {
				o.BaseEndpoint = aws.String(options.endpoint)
			}
		})
	}

	m := &Model{
		client:      client,
		modelID:     modelID,
		maxTokens:   options.maxTokens,
		temperature: options.temperature,
	}
	m.synth = synth.New(m, options.synthOpts...)
	return m, nil
}

// Name returns "bedrock:<model id>".
func (m *Model) Name() string {
	return api.ProviderBedrock + ":" + m.modelID
}

// IsClaude reports whether modelID belongs to the Anthropic Claude family.
func IsClaude(modelID string) bool {
	return strings.Contains(strings.ToLower(modelID), "claude")
}

// IsLegacy reports whether modelID is a text-completion model that only accepts InvokeModel.
func IsLegacy(modelID string) bool {
	id := strings.ToLower(modelID)
	for _, prefix := range legacyModels {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// FormatPrompt renders prompt and optional context as the single text block sent to modelID.
func FormatPrompt(modelID, prompt, promptContext string) string {
	if IsClaude(modelID) {
		if promptContext != "" {
			return fmt.Sprintf("Context: %s\n\nHuman: %s\n\nAssistant:", promptContext, prompt)
		}
		return fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt)
	}
	if promptContext != "" {
		return fmt.Sprintf("Context: %s\nQuestion: %s", promptContext, prompt)
	}
	return prompt
}

// GenerateResponse issues one generation call.
func (m *Model) GenerateResponse(ctx context.Context, prompt, promptContext string) (string, error) {
	return m.generate(ctx, FormatPrompt(m.modelID, prompt, promptContext), m.temperature)
}

// BatchGenerate generates responses for prompts in order.
func (m *Model) BatchGenerate(ctx context.Context, prompts, contexts []string) ([]string, error) {
	return m.synth.BatchGenerate(ctx, prompts, contexts)
}

// GenerateTestData synthesizes test data from development examples.
func (m *Model) GenerateTestData(ctx context.Context, examples []api.DevelopmentExample) ([]api.TestDataItem, error) {
	return m.synth.GenerateTestData(ctx, examples)
}

const structuredPromptTemplate = `%s

Respond only with a JSON object that conforms to this JSON schema:
%s`

// StructuredGenerate prompts the model for JSON matching schema and repairs the reply before parsing.
func (m *Model) StructuredGenerate(ctx context.Context, prompt string, schema map[string]interface{}) (map[string]interface{}, error) {
	rawSchema, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to encode schema: %w", err)
	}

	text, err := m.generate(ctx, FormatPrompt(m.modelID, fmt.Sprintf(structuredPromptTemplate, prompt, rawSchema), ""), 0)
	if err != nil {
		return nil, err
	}

	repaired, err := jsonrepair.JSONRepair(extractJSON(text))
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to repair structured response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return nil, fmt.Errorf("bedrock: failed to parse structured response: %w", err)
	}
	return result, nil
}

// extractJSON drops any prose around the outermost JSON object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(text)
	}
	return text[start : end+1]
}

func (m *Model) generate(ctx context.Context, text string, temperature float32) (string, error) {
	if IsLegacy(m.modelID) {
		return m.invoke(ctx, text, temperature)
	}
	return m.converse(ctx, text, temperature)
}

type completionRequest struct {
	Prompt            string  `json:"prompt"`
	MaxTokensToSample int     `json:"max_tokens_to_sample"`
	Temperature       float32 `json:"temperature"`
}

type completionResponse struct {
	Completion string `json:"completion"`
}

func (m *Model) invoke(ctx context.Context, text string, temperature float32) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:            text,
		MaxTokensToSample: m.maxTokens,
		Temperature:       temperature,
	})
	if err != nil {
		return "", api.NewProviderError(api.ProviderBedrock, m.modelID, err)
	}

	out, err := m.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(m.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", m.wrapError(err)
	}

	var resp completionResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", api.NewProviderError(api.ProviderBedrock, m.modelID, fmt.Errorf("decode completion: %w", err))
	}
	return resp.Completion, nil
}

func (m *Model) converse(ctx context.Context, text string, temperature float32) (string, error) {
	maxTokens := min(m.maxTokens, math.MaxInt32)
	out, err := m.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(m.modelID),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			// #nosec G115 -- bounded by min above
			MaxTokens:   aws.Int32(int32(maxTokens)),
			Temperature: aws.Float32(temperature),
		},
	})
	if err != nil {
		return "", m.wrapError(err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", api.NewProviderError(api.ProviderBedrock, m.modelID, errors.New("no message returned"))
	}
	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}
	return sb.String(), nil
}

// errorCodeStatus maps Bedrock error codes to an HTTP status when the response carried none.
var errorCodeStatus = map[string]int{
	"ThrottlingException":           http.StatusTooManyRequests,
	"ServiceQuotaExceededException": http.StatusTooManyRequests,
	"ModelNotReadyException":        http.StatusServiceUnavailable,
	"ServiceUnavailableException":   http.StatusServiceUnavailable,
	"InternalServerException":       http.StatusInternalServerError,
	"ValidationException":           http.StatusBadRequest,
	"AccessDeniedException":         http.StatusForbidden,
	"ResourceNotFoundException":     http.StatusNotFound,
}

func (m *Model) wrapError(err error) error {
	pe := &api.ProviderError{Provider: api.ProviderBedrock, Model: m.modelID, Cause: err}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		pe.Status = statusErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if pe.Status == 0 && errors.As(err, &apiErr) {
		pe.Status = errorCodeStatus[apiErr.ErrorCode()]
	}
	return pe
}

var (
	_ api.ModelProvider = (*Model)(nil)
	_ api.LLMGenerator  = (*Model)(nil)
)
