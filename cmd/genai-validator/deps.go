package main

import (
	"context"
	"errors"
	"fmt"

	language "cloud.google.com/go/language/apiv1"
	"google.golang.org/genai"

	"github.com/datar-psa/genaivalidator"
	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/azure"
	"github.com/datar-psa/genaivalidator/bedrock"
	"github.com/datar-psa/genaivalidator/challenger"
	"github.com/datar-psa/genaivalidator/data"
	"github.com/datar-psa/genaivalidator/internal/config"
	"github.com/datar-psa/genaivalidator/synth"
)

// Constructors for external backends. Tests replace them with fakes.
var (
	newProvider  = buildProvider
	newExtractor = data.NewS3Extractor
	newModerator = dialModerator
	newScorers   = buildScorers
)

// buildProvider creates the model for spec. Azure needs credentials; Bedrock falls back to the
// default AWS credential chain.
func buildProvider(ctx context.Context, spec api.ModelSpec, creds challenger.Credentials, synthOpts []func(*synth.Options)) (api.ModelProvider, error) {
	switch spec.Provider {
	case api.ProviderAzure:
		if creds.Azure == nil {
			return nil, fmt.Errorf("%w: azure credentials required for %s", api.ErrMissingCredentials, spec.ModelID)
		}
		return azure.New(spec.ModelID, *creds.Azure, azure.WithSynthOptions(synthOpts...))
	case api.ProviderBedrock:
		return bedrock.New(ctx, spec.ModelID, creds.AWS, bedrock.WithSynthOptions(synthOpts...))
	default:
		return nil, fmt.Errorf("%w: %q", api.ErrUnknownProvider, spec.Provider)
	}
}

// dialModerator connects to Cloud Natural Language with application default credentials.
func dialModerator(ctx context.Context) (api.ModerationProvider, func() error, error) {
	client, err := language.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create language client: %w", err)
	}
	judge := genaivalidator.NewGeminiLLMJudge(genaivalidator.WithLanguageClient(client))
	return judge.Moderation(), client.Close, nil
}

// buildScorers returns the metric scorers for the configured judge.
func buildScorers(ctx context.Context, cfg *config.Config, creds challenger.Credentials) (map[string]api.Scorer, error) {
	switch cfg.Judge.Kind {
	case config.JudgeLexical:
		return genaivalidator.LexicalScorers(), nil

	case config.JudgeGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Judge.Project,
			Location: cfg.Judge.Location,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		model := cfg.Judge.Model
		if model == "" {
			model = config.DefaultJudgeModel
		}
		judge := genaivalidator.NewGeminiLLMJudge(
			genaivalidator.WithGenaiClient(client),
			genaivalidator.WithModelName(model),
		)
		var embedder api.Embedder
		if cfg.Judge.EmbeddingModel != "" {
			embedder = genaivalidator.NewGeminiEmbedding(
				genaivalidator.WithGenaiClient(client),
				genaivalidator.WithModelName(cfg.Judge.EmbeddingModel),
			).Embedder()
		}
		return genaivalidator.JudgeScorers(judge.LLM(), embedder), nil

	case config.JudgeAzure:
		if cfg.Judge.Model == "" {
			return nil, errors.New("--judge-model is required for the azure judge")
		}
		if creds.Azure == nil {
			return nil, fmt.Errorf("%w: azure credentials required for the azure judge", api.ErrMissingCredentials)
		}
		llm, err := azure.New(cfg.Judge.Model, *creds.Azure)
		if err != nil {
			return nil, err
		}
		return genaivalidator.JudgeScorers(llm, nil), nil

	case config.JudgeBedrock:
		if cfg.Judge.Model == "" {
			return nil, errors.New("--judge-model is required for the bedrock judge")
		}
		llm, err := bedrock.New(ctx, cfg.Judge.Model, creds.AWS)
		if err != nil {
			return nil, err
		}
		return genaivalidator.JudgeScorers(llm, nil), nil

	default:
		return nil, fmt.Errorf("unknown judge %q", cfg.Judge.Kind)
	}
}
