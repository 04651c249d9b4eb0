// Package azure implements a model provider on Azure OpenAI deployments.
package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/synth"
)

const (
	defaultMaxTokens   = 1000
	defaultTemperature = 0.7
)

// ChatClient is the subset of *openai.Client used by Model.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures a Model
type Options struct {
	client      ChatClient
	maxTokens   int
	temperature float32
	synthOpts   []func(*synth.Options)
}

// WithClient replaces the Azure OpenAI client, mainly for tests
func WithClient(client ChatClient) func(*Options) {
	return func(opts *Options) {
		opts.client = client
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

// Model is an Azure OpenAI chat deployment. Context is sent as a system message.
type Model struct {
	client      ChatClient
	deployment  string
	maxTokens   int
	temperature float32
	synth       *synth.Synthesizer
}

// New creates a Model for deployment.
// creds must carry an API key and base URL unless a client is injected with WithClient.
func New(deployment string, creds api.AzureCredentials, opts ...func(*Options)) (*Model, error) {
	if strings.TrimSpace(deployment) == "" {
		return nil, errors.New("azure: deployment name is required")
	}

	options := Options{maxTokens: defaultMaxTokens, temperature: defaultTemperature}
	for _, opt := range opts {
		opt(&options)
	}

	client := options.client
	if client == nil {
		if creds.APIKey == "" || creds.APIBase == "" {
			return nil, fmt.Errorf("azure: api_key and api_base are required: %w", api.ErrMissingCredentials)
		}
		apiVersion := creds.APIVersion
		if apiVersion == "" {
			apiVersion = api.DefaultAzureAPIVersion
		}
		config := openai.DefaultAzureConfig(creds.APIKey, creds.APIBase)
		config.APIVersion = apiVersion
		client = openai.NewClientWithConfig(config)
	}

	m := &Model{
		client:      client,
		deployment:  deployment,
		maxTokens:   options.maxTokens,
		temperature: options.temperature,
	}
	m.synth = synth.New(m, options.synthOpts...)
	return m, nil
}

// Name returns "azure:<deployment>".
func (m *Model) Name() string {
	return api.ProviderAzure + ":" + m.deployment
}

// Messages formats prompt and optional context as a chat message list.
func Messages(prompt, promptContext string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if promptContext != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Use the following context to answer the question: " + promptContext,
		})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

// GenerateResponse issues one chat completion.
func (m *Model) GenerateResponse(ctx context.Context, prompt, promptContext string) (string, error) {
	return m.complete(ctx, openai.ChatCompletionRequest{
		Model:       m.deployment,
		Messages:    Messages(prompt, promptContext),
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
}

// BatchGenerate generates responses for prompts in order.
func (m *Model) BatchGenerate(ctx context.Context, prompts, contexts []string) ([]string, error) {
	return m.synth.BatchGenerate(ctx, prompts, contexts)
}

// GenerateTestData synthesizes test data from development examples.
func (m *Model) GenerateTestData(ctx context.Context, examples []api.DevelopmentExample) ([]api.TestDataItem, error) {
	return m.synth.GenerateTestData(ctx, examples)
}

// StructuredGenerate asks the deployment for JSON matching schema.
func (m *Model) StructuredGenerate(ctx context.Context, prompt string, schema map[string]interface{}) (map[string]interface{}, error) {
	rawSchema, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("azure: failed to encode schema: %w", err)
	}

	text, err := m.complete(ctx, openai.ChatCompletionRequest{
		Model:       m.deployment,
		Messages:    Messages(prompt, ""),
		MaxTokens:   m.maxTokens,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "judgement",
				Schema: json.RawMessage(rawSchema),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("azure: failed to parse structured response: %w", err)
	}
	return result, nil
}

func (m *Model) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", m.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", api.NewProviderError(api.ProviderAzure, m.deployment, errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *Model) wrapError(err error) error {
	pe := &api.ProviderError{Provider: api.ProviderAzure, Model: m.deployment, Cause: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		pe.Status = reqErr.HTTPStatusCode
	}
	return pe
}

var (
	_ api.ModelProvider = (*Model)(nil)
	_ api.LLMGenerator  = (*Model)(nil)
)
