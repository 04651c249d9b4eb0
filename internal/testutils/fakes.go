package testutils

import (
	"context"
	"sync"

	"github.com/datar-psa/genaivalidator/api"
	"github.com/datar-psa/genaivalidator/synth"
)

// Call records one GenerateResponse invocation on a ScriptedProvider
type Call struct {
	Prompt  string
	Context string
}

// ScriptedProvider is an api.ModelProvider whose responses come from Respond.
// It is safe for concurrent use.
type ScriptedProvider struct {
	Label   string
	Respond func(prompt, context string) (string, error)

	mu    sync.Mutex
	calls []Call
	synth *synth.Synthesizer
}

// NewScriptedProvider creates a ScriptedProvider named label.
func NewScriptedProvider(label string, respond func(prompt, context string) (string, error), opts ...func(*synth.Options)) *ScriptedProvider {
	p := &ScriptedProvider{Label: label, Respond: respond}
	p.synth = synth.New(p, opts...)
	return p
}

// ConstantProvider answers every prompt with response.
func ConstantProvider(label, response string) *ScriptedProvider {
	return NewScriptedProvider(label, func(string, string) (string, error) {
		return response, nil
	})
}

func (p *ScriptedProvider) Name() string {
	return p.Label
}

func (p *ScriptedProvider) GenerateResponse(ctx context.Context, prompt, promptContext string) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Prompt: prompt, Context: promptContext})
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Respond(prompt, promptContext)
}

func (p *ScriptedProvider) BatchGenerate(ctx context.Context, prompts, contexts []string) ([]string, error) {
	return p.synth.BatchGenerate(ctx, prompts, contexts)
}

func (p *ScriptedProvider) GenerateTestData(ctx context.Context, examples []api.DevelopmentExample) ([]api.TestDataItem, error) {
	return p.synth.GenerateTestData(ctx, examples)
}

// Calls returns a copy of the recorded calls.
func (p *ScriptedProvider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

var _ api.ModelProvider = (*ScriptedProvider)(nil)
