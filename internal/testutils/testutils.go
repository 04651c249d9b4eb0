// Package testutils holds record/replay HTTP clients and fake model providers for tests.
package testutils

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/areknoster/hypert"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"

	"github.com/datar-psa/genaivalidator/gemini"
)

// ShouldUpdate returns true if tests should record fresh HTTP responses.
// Set UPDATE_TESTS=true to record.
func ShouldUpdate() bool {
	return os.Getenv("UPDATE_TESTS") == "true"
}

// RequireRecordings skips the test when no recorded responses exist for subDir and
// UPDATE_TESTS is not set, so replay-only runs never reach the network.
func RequireRecordings(t *testing.T, subDir string) {
	t.Helper()
	if ShouldUpdate() {
		return
	}
	entries, err := os.ReadDir(filepath.Join("testdata", subDir))
	if err != nil || len(entries) == 0 {
		t.Skipf("no recorded responses in testdata/%s; run with UPDATE_TESTS=true to record", subDir)
	}
}

// HypertClientConfig configures hypert client creation
type HypertClientConfig struct {
	TestDataDir string
	SubDir      string // Optional subdirectory for organizing test data
	// QuotaProject is sent as X-Goog-User-Project while recording, if set
	QuotaProject string
}

// NewHypertClient returns an HTTP client that replays recorded responses, or records them
// through Google application default credentials when ShouldUpdate is true.
func NewHypertClient(t *testing.T, config HypertClientConfig) *http.Client {
	t.Helper()

	dir := config.TestDataDir
	if config.SubDir != "" {
		dir = filepath.Join(dir, config.SubDir)
	}

	namingScheme, err := hypert.NewContentHashNamingScheme(dir)
	if err != nil {
		t.Fatalf("failed to create naming scheme: %v", err)
	}

	recorder := hypert.TestClient(t, ShouldUpdate(),
		hypert.WithNamingScheme(namingScheme),
		hypert.WithRequestValidator(hypert.ComposedRequestValidator(
			hypert.PathValidator(),
			hypert.QueryParamsValidator(),
			hypert.MethodValidator(),
		)),
	)
	if !ShouldUpdate() {
		return recorder
	}

	ctx := context.Background()
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		t.Fatalf("failed to get default credentials: %v", err)
	}
	authed := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, recorder), creds.TokenSource)
	if config.QuotaProject == "" {
		return authed
	}
	return &http.Client{
		Transport: &quotaProjectTransport{base: authed.Transport, projectID: config.QuotaProject},
		Timeout:   authed.Timeout,
	}
}

// quotaProjectTransport adds the quota project header to every request
type quotaProjectTransport struct {
	base      http.RoundTripper
	projectID string
}

func (t *quotaProjectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Goog-User-Project", t.projectID)
	return t.base.RoundTrip(req)
}

// GeminiTestConfig configures Gemini client creation for tests
type GeminiTestConfig struct {
	Project  string
	Location string
	SubDir   string // Subdirectory for hypert test data
}

// DefaultGeminiTestConfig reads the project and region from GOOGLE_PROJECT_ID and GOOGLE_REGION
func DefaultGeminiTestConfig(subDir string) GeminiTestConfig {
	return GeminiTestConfig{
		Project:  os.Getenv("GOOGLE_PROJECT_ID"),
		Location: os.Getenv("GOOGLE_REGION"),
		SubDir:   subDir,
	}
}

// NewGeminiClient creates a Vertex AI genai client backed by a hypert client
func NewGeminiClient(t *testing.T, config GeminiTestConfig) *genai.Client {
	t.Helper()

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  config.Project,
		Location: config.Location,
		HTTPClient: NewHypertClient(t, HypertClientConfig{
			TestDataDir:  "testdata",
			SubDir:       config.SubDir,
			QuotaProject: config.Project,
		}),
	})
	if err != nil {
		t.Fatalf("failed to create genai client: %v", err)
	}
	return genaiClient
}

// NewGeminiGenerator creates a Gemini judge for integration tests
func NewGeminiGenerator(t *testing.T, config GeminiTestConfig, modelName string) *gemini.Generator {
	return gemini.NewGenerator(NewGeminiClient(t, config), modelName)
}

// NewGeminiEmbedder creates a Gemini embedder for integration tests
func NewGeminiEmbedder(t *testing.T, config GeminiTestConfig, modelName string) *gemini.Embedder {
	return gemini.NewEmbedder(NewGeminiClient(t, config), modelName)
}
