package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rcflow/rcflow/domain/changerequest"
	"github.com/rcflow/rcflow/domain/remoteconfig"
)

func strPtr(s string) *string { return &s }

func testChangeRequest(t *testing.T) *changerequest.ChangeRequest {
	t.Helper()

	base := remoteconfig.NewSnapshot(
		[]remoteconfig.Parameter{
			{Key: "rollout_pct", DefaultValue: strPtr("10")},
			{Key: "old_flag", DefaultValue: strPtr("off")},
		},
		nil,
		"tester",
	)
	candidate := remoteconfig.NewSnapshot(
		[]remoteconfig.Parameter{
			{
				Key:          "rollout_pct",
				DefaultValue: strPtr("50"),
				ConditionalValues: map[string]string{
					"us_half": "25",
				},
			},
			{Key: "welcome_banner", DefaultValue: strPtr("on")},
		},
		[]remoteconfig.Condition{
			{Name: "us_half", Expression: "user.country == 'US' && user.randomPercentage < 50"},
		},
		"tester",
	)

	cr, err := changerequest.New("Raise rollout", remoteconfig.EnvProd, base, candidate,
		changerequest.Principal{UID: "u-1"})
	if err != nil {
		t.Fatalf("changerequest.New() error = %v", err)
	}
	cr.Description = "Bump rollout in the US"
	return cr
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	t.Parallel()

	if _, err := NewGenerator(Config{}); err == nil {
		t.Fatal("NewGenerator() expected error for missing API key")
	}
}

func TestGenerate(t *testing.T) {
	var gotRequest struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "A fine summary."}}]
		}`))
	}))
	t.Cleanup(srv.Close)

	gen, err := NewGenerator(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	got, err := gen.Generate(context.Background(), testChangeRequest(t))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "A fine summary." {
		t.Errorf("Generate() = %q", got)
	}

	if gotRequest.Model != DefaultModel {
		t.Errorf("model = %q, want %q", gotRequest.Model, DefaultModel)
	}
	if gotRequest.Temperature != 0.7 {
		t.Errorf("temperature = %v, want 0.7", gotRequest.Temperature)
	}
	if gotRequest.MaxTokens != 1000 {
		t.Errorf("max_tokens = %d, want 1000", gotRequest.MaxTokens)
	}
	if len(gotRequest.Messages) != 2 || gotRequest.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", gotRequest.Messages)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	gen, err := NewGenerator(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}

	if _, err := gen.Generate(context.Background(), testChangeRequest(t)); err == nil {
		t.Fatal("Generate() expected error")
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt(testChangeRequest(t))

	for _, want := range []string{
		"Change Request: Raise rollout",
		"Description: Bump rollout in the US",
		"=== DIFF SUMMARY ===",
		"- Added parameters: 1 (welcome_banner)",
		"- Removed parameters: 1 (old_flag)",
		"- Updated parameters: 1 (rollout_pct)",
		"- Added conditions: 1 (us_half)",
		"=== CONDITION DETAILS ===",
		`Added condition "us_half": user.country == 'US' && user.randomPercentage < 50`,
		"=== PARAMETER DETAILS ===",
		"Default value: 10 → 50",
		"=== NEW PARAMETERS ===",
		"=== PARAMETER-CONDITION MAPPING ===",
		`Added conditional value for condition "us_half": 25`,
		`Condition "us_half" expression: user.country == 'US' && user.randomPercentage < 50`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptNoConditionChanges(t *testing.T) {
	t.Parallel()

	base := remoteconfig.NewSnapshot(
		[]remoteconfig.Parameter{{Key: "a", DefaultValue: strPtr("1")}}, nil, "tester")
	candidate := remoteconfig.NewSnapshot(
		[]remoteconfig.Parameter{{Key: "a", DefaultValue: strPtr("2")}}, nil, "tester")

	cr, err := changerequest.New("Tweak", remoteconfig.EnvStaging, base, candidate,
		changerequest.Principal{UID: "u-1"})
	if err != nil {
		t.Fatalf("changerequest.New() error = %v", err)
	}

	prompt := buildPrompt(cr)
	if !strings.Contains(prompt, "No condition changes") {
		t.Error("prompt should note the absence of condition changes")
	}
}
