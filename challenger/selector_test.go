package challenger

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/datar-psa/genaivalidator/api"
)

type stubProvider struct {
	api.ModelProvider
	name string
}

func (s *stubProvider) Name() string { return s.name }

func TestDefaultModels(t *testing.T) {
	models := DefaultModels()

	tests := []struct {
		task     string
		model    string
		provider string
		score    float64
		bench    string
	}{
		{api.TaskQA, "gpt-4", api.ProviderAzure, 0.92, "SQuAD 2.0"},
		{api.TaskSummarization, "anthropic.claude-v2", api.ProviderBedrock, 0.89, "ROUGE-L on CNN/DailyMail"},
		{api.TaskReasoning, "gpt-4", api.ProviderAzure, 0.90, "GSM8K"},
	}
	for _, tt := range tests {
		spec, ok := models[tt.task]
		if !ok {
			t.Fatalf("DefaultModels() missing task %q", tt.task)
		}
		if spec.ModelID != tt.model || spec.Provider != tt.provider || spec.BenchmarkScore != tt.score || spec.BenchmarkName != tt.bench {
			t.Errorf("DefaultModels()[%q] = %+v", tt.task, spec)
		}
	}

	models[api.TaskQA] = api.ModelSpec{ModelID: "mutated"}
	if DefaultModels()[api.TaskQA].ModelID != "gpt-4" {
		t.Error("DefaultModels() returned a shared table")
	}
}

func TestGetBestModel_MissingCredentials(t *testing.T) {
	for _, task := range []string{api.TaskQA, api.TaskSummarization, api.TaskReasoning} {
		t.Run(task, func(t *testing.T) {
			called := false
			factory := func(ctx context.Context, spec api.ModelSpec, creds Credentials) (api.ModelProvider, error) {
				called = true
				return &stubProvider{}, nil
			}
			s := NewSelector(task, WithFactory(api.ProviderAzure, factory), WithFactory(api.ProviderBedrock, factory))

			_, err := s.GetBestModel(context.Background(), Credentials{})
			if !errors.Is(err, api.ErrMissingCredentials) {
				t.Errorf("GetBestModel() error = %v, want ErrMissingCredentials", err)
			}
			if called {
				t.Error("GetBestModel() built a client without credentials")
			}
		})
	}
}

func TestGetBestModel_UnknownTask(t *testing.T) {
	s := NewSelector("translation")

	_, err := s.GetBestModel(context.Background(), Credentials{
		AWS:   &api.AWSCredentials{AccessKey: "a", SecretKey: "b"},
		Azure: &api.AzureCredentials{APIKey: "k", APIBase: "https://example.openai.azure.com"},
	})
	if !errors.Is(err, api.ErrUnknownTaskType) {
		t.Errorf("GetBestModel() error = %v, want ErrUnknownTaskType", err)
	}

	if _, err := s.GetBenchmarkInfo(); !errors.Is(err, api.ErrUnknownTaskType) {
		t.Errorf("GetBenchmarkInfo() error = %v, want ErrUnknownTaskType", err)
	}
}

func TestGetBestModel_UnknownProvider(t *testing.T) {
	s := NewSelector("qa", WithModels(map[string]api.ModelSpec{
		"qa": {ModelID: "gemini-2.5-pro", Provider: "vertex"},
	}))

	_, err := s.GetBestModel(context.Background(), Credentials{})
	if !errors.Is(err, api.ErrUnknownProvider) {
		t.Errorf("GetBestModel() error = %v, want ErrUnknownProvider", err)
	}
}

func TestGetBestModel_Factory(t *testing.T) {
	var gotSpec api.ModelSpec
	var gotCreds Credentials
	factory := func(ctx context.Context, spec api.ModelSpec, creds Credentials) (api.ModelProvider, error) {
		gotSpec = spec
		gotCreds = creds
		return &stubProvider{name: "bedrock:" + spec.ModelID}, nil
	}

	s := NewSelector("SUMMARIZATION", WithFactory(api.ProviderBedrock, factory))
	if s.Task() != api.TaskSummarization {
		t.Errorf("Task() = %q, want lowercased tag", s.Task())
	}

	aws := &api.AWSCredentials{AccessKey: "a", SecretKey: "b"}
	p, err := s.GetBestModel(context.Background(), Credentials{AWS: aws})
	if err != nil {
		t.Fatalf("GetBestModel() unexpected error = %v", err)
	}
	if p.Name() != "bedrock:anthropic.claude-v2" {
		t.Errorf("GetBestModel() provider = %q", p.Name())
	}
	if gotSpec.ModelID != "anthropic.claude-v2" || gotCreds.AWS != aws {
		t.Errorf("factory got spec %+v creds %+v", gotSpec, gotCreds)
	}

	failing := NewSelector("qa", WithFactory(api.ProviderAzure, func(ctx context.Context, spec api.ModelSpec, creds Credentials) (api.ModelProvider, error) {
		return nil, errors.New("boom")
	}))
	if _, err := failing.GetBestModel(context.Background(), Credentials{Azure: &api.AzureCredentials{}}); err == nil {
		t.Error("GetBestModel() expected factory error")
	}
}

func TestGetBestModel_DefaultAzureFactory(t *testing.T) {
	s := NewSelector("qa")

	p, err := s.GetBestModel(context.Background(), Credentials{
		Azure: &api.AzureCredentials{APIKey: "k", APIBase: "https://example.openai.azure.com"},
	})
	if err != nil {
		t.Fatalf("GetBestModel() unexpected error = %v", err)
	}
	if p.Name() != "azure:gpt-4" {
		t.Errorf("GetBestModel() provider = %q, want azure:gpt-4", p.Name())
	}

	_, err = s.GetBestModel(context.Background(), Credentials{Azure: &api.AzureCredentials{}})
	if !errors.Is(err, api.ErrMissingCredentials) {
		t.Errorf("GetBestModel() with empty azure credentials error = %v, want ErrMissingCredentials", err)
	}
}

func TestGetBenchmarkInfo(t *testing.T) {
	tests := []struct {
		task string
		want api.BenchmarkInfo
	}{
		{"qa", api.BenchmarkInfo{Model: "gpt-4", Provider: "azure", BenchmarkName: "SQuAD 2.0", BenchmarkScore: "0.92"}},
		{"summarization", api.BenchmarkInfo{Model: "anthropic.claude-v2", Provider: "bedrock", BenchmarkName: "ROUGE-L on CNN/DailyMail", BenchmarkScore: "0.89"}},
		{"Reasoning", api.BenchmarkInfo{Model: "gpt-4", Provider: "azure", BenchmarkName: "GSM8K", BenchmarkScore: "0.9"}},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			got, err := NewSelector(tt.task).GetBenchmarkInfo()
			if err != nil {
				t.Fatalf("GetBenchmarkInfo() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Errorf("GetBenchmarkInfo() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTasks(t *testing.T) {
	got := NewSelector("qa").Tasks()
	want := []string{"qa", "reasoning", "summarization"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tasks() = %v, want %v", got, want)
	}
}
