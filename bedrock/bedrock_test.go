package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/datar-psa/genaivalidator/api"
)

// mockRuntime is a simple mock for unit tests
type mockRuntime struct {
	completion string
	reply      string
	err        error

	invokes   []*bedrockruntime.InvokeModelInput
	converses []*bedrockruntime.ConverseInput
}

func (m *mockRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	m.invokes = append(m.invokes, params)
	if m.err != nil {
		return nil, m.err
	}
	body, _ := json.Marshal(map[string]string{"completion": m.completion})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func (m *mockRuntime) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.converses = append(m.converses, params)
	if m.err != nil {
		return nil, m.err
	}
	return &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.reply}},
		}},
	}, nil
}

func TestFormatPrompt(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		prompt  string
		context string
		want    string
	}{
		{
			name:    "claude with context",
			modelID: "anthropic.claude-v2",
			prompt:  "Summarize.",
			context: "Long text",
			want:    "Context: Long text\n\nHuman: Summarize.\n\nAssistant:",
		},
		{
			name:    "claude without context",
			modelID: "anthropic.claude-3-haiku-20240307-v1:0",
			prompt:  "Summarize.",
			want:    "\n\nHuman: Summarize.\n\nAssistant:",
		},
		{
			name:    "other family with context",
			modelID: "amazon.titan-text-express-v1",
			prompt:  "Summarize.",
			context: "Long text",
			want:    "Context: Long text\nQuestion: Summarize.",
		},
		{
			name:    "other family without context",
			modelID: "meta.llama3-8b-instruct-v1:0",
			prompt:  "Summarize.",
			want:    "Summarize.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatPrompt(tt.modelID, tt.prompt, tt.context); got != tt.want {
				t.Errorf("FormatPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsLegacy(t *testing.T) {
	tests := map[string]bool{
		"anthropic.claude-v2":                     true,
		"anthropic.claude-v2:1":                   true,
		"anthropic.claude-instant-v1":             true,
		"anthropic.claude-3-sonnet-20240229-v1:0": false,
		"amazon.titan-text-express-v1":            false,
	}
	for modelID, want := range tests {
		if got := IsLegacy(modelID); got != want {
			t.Errorf("IsLegacy(%q) = %v, want %v", modelID, got, want)
		}
	}
}

func TestGenerateResponse_Legacy(t *testing.T) {
	client := &mockRuntime{completion: " Paris"}
	m, err := New(context.Background(), "anthropic.claude-v2", nil, WithClient(client), WithMaxTokens(300))
	if err != nil {
		t.Fatalf("New() unexpected error = %v", err)
	}

	got, err := m.GenerateResponse(context.Background(), "Capital of France?", "France")
	if err != nil {
		t.Fatalf("GenerateResponse() unexpected error = %v", err)
	}
	if got != " Paris" {
		t.Errorf("GenerateResponse() = %q, want %q", got, " Paris")
	}
	if len(client.invokes) != 1 || len(client.converses) != 0 {
		t.Fatalf("calls: invoke=%d converse=%d, want a single InvokeModel", len(client.invokes), len(client.converses))
	}

	var body struct {
		Prompt            string  `json:"prompt"`
		MaxTokensToSample int     `json:"max_tokens_to_sample"`
		Temperature       float64 `json:"temperature"`
	}
	if err := json.Unmarshal(client.invokes[0].Body, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if body.Prompt != "Context: France\n\nHuman: Capital of France?\n\nAssistant:" {
		t.Errorf("request prompt = %q", body.Prompt)
	}
	if body.MaxTokensToSample != 300 {
		t.Errorf("max_tokens_to_sample = %d, want 300", body.MaxTokensToSample)
	}
	if body.Temperature < 0.69 || body.Temperature > 0.71 {
		t.Errorf("temperature = %v, want 0.7", body.Temperature)
	}
	if aws.ToString(client.invokes[0].ModelId) != "anthropic.claude-v2" {
		t.Errorf("model id = %q", aws.ToString(client.invokes[0].ModelId))
	}
}

func TestGenerateResponse_Converse(t *testing.T) {
	client := &mockRuntime{reply: "A summary."}
	m, err := New(context.Background(), "amazon.titan-text-express-v1", nil, WithClient(client))
	if err != nil {
		t.Fatalf("New() unexpected error = %v", err)
	}

	got, err := m.GenerateResponse(context.Background(), "Summarize.", "Long text")
	if err != nil {
		t.Fatalf("GenerateResponse() unexpected error = %v", err)
	}
	if got != "A summary." {
		t.Errorf("GenerateResponse() = %q, want %q", got, "A summary.")
	}
	if len(client.converses) != 1 || len(client.invokes) != 0 {
		t.Fatalf("calls: invoke=%d converse=%d, want a single Converse", len(client.invokes), len(client.converses))
	}

	in := client.converses[0]
	if len(in.Messages) != 1 || in.Messages[0].Role != types.ConversationRoleUser {
		t.Fatalf("messages = %+v, want one user message", in.Messages)
	}
	text, ok := in.Messages[0].Content[0].(*types.ContentBlockMemberText)
	if !ok || text.Value != "Context: Long text\nQuestion: Summarize." {
		t.Errorf("content = %+v", in.Messages[0].Content)
	}
	if aws.ToInt32(in.InferenceConfig.MaxTokens) != defaultMaxTokens {
		t.Errorf("max tokens = %d, want %d", aws.ToInt32(in.InferenceConfig.MaxTokens), defaultMaxTokens)
	}
	if m.Name() != "bedrock:amazon.titan-text-express-v1" {
		t.Errorf("Name() = %q", m.Name())
	}
}

func TestGenerateResponse_Errors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantRetryable bool
	}{
		{
			name:          "throttled",
			err:           &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
			wantStatus:    http.StatusTooManyRequests,
			wantRetryable: true,
		},
		{
			name:       "validation",
			err:        &smithy.GenericAPIError{Code: "ValidationException", Message: "bad input"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:          "deadline",
			err:           context.DeadlineExceeded,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(context.Background(), "anthropic.claude-3-haiku-20240307-v1:0", nil, WithClient(&mockRuntime{err: tt.err}))
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}

			_, err = m.GenerateResponse(context.Background(), "prompt", "")
			var pe *api.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("GenerateResponse() error = %v, want *api.ProviderError", err)
			}
			if pe.Provider != api.ProviderBedrock {
				t.Errorf("ProviderError.Provider = %q", pe.Provider)
			}
			if pe.Status != tt.wantStatus {
				t.Errorf("ProviderError.Status = %d, want %d", pe.Status, tt.wantStatus)
			}
			if pe.Retryable() != tt.wantRetryable {
				t.Errorf("ProviderError.Retryable() = %v, want %v", pe.Retryable(), tt.wantRetryable)
			}
		})
	}
}

func TestStructuredGenerate(t *testing.T) {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"choice":      map[string]interface{}{"type": "string"},
			"explanation": map[string]interface{}{"type": "string"},
		},
	}

	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr bool
	}{
		{
			name:  "clean json",
			reply: `{"choice": "B", "explanation": "mostly"}`,
			want:  "B",
		},
		{
			name:  "prose and trailing comma",
			reply: "Here is my judgement:\n{\"choice\": \"C\", \"explanation\": \"partly\",}\nThanks.",
			want:  "C",
		},
		{
			name:  "single quotes",
			reply: `{'choice': 'A', 'explanation': 'fully'}`,
			want:  "A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockRuntime{reply: tt.reply}
			m, err := New(context.Background(), "anthropic.claude-3-haiku-20240307-v1:0", nil, WithClient(client))
			if err != nil {
				t.Fatalf("New() unexpected error = %v", err)
			}

			got, err := m.StructuredGenerate(context.Background(), "judge this", schema)
			if tt.wantErr {
				if err == nil {
					t.Fatal("StructuredGenerate() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("StructuredGenerate() unexpected error = %v", err)
			}
			if got["choice"] != tt.want {
				t.Errorf("StructuredGenerate() choice = %v, want %v", got["choice"], tt.want)
			}

			sent := client.converses[0].Messages[0].Content[0].(*types.ContentBlockMemberText).Value
			if !strings.Contains(sent, `"explanation"`) {
				t.Errorf("prompt does not carry the schema: %q", sent)
			}
			if aws.ToFloat32(client.converses[0].InferenceConfig.Temperature) != 0 {
				t.Errorf("structured generation temperature = %v, want 0", aws.ToFloat32(client.converses[0].InferenceConfig.Temperature))
			}
		})
	}
}

func TestModel_HTTP(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"completion":" Paris","stop_reason":"stop_sequence"}`))
	}))
	defer srv.Close()

	creds := &api.AWSCredentials{AccessKey: "AKIDEXAMPLE", SecretKey: "secret", Region: "us-west-2"}
	m, err := New(context.Background(), "anthropic.claude-v2", creds, WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New() unexpected error = %v", err)
	}

	got, err := m.GenerateResponse(context.Background(), "Capital of France?", "")
	if err != nil {
		t.Fatalf("GenerateResponse() unexpected error = %v", err)
	}
	if got != " Paris" {
		t.Errorf("GenerateResponse() = %q, want %q", got, " Paris")
	}
	if !strings.HasSuffix(gotPath, "/invoke") || !strings.Contains(gotPath, "anthropic.claude-v2") {
		t.Errorf("request path = %q, want the model invoke path", gotPath)
	}
	if gotBody["prompt"] != "\n\nHuman: Capital of France?\n\nAssistant:" {
		t.Errorf("request prompt = %v", gotBody["prompt"])
	}
}
