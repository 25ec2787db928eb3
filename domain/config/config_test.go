package config

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDurationJSON(t *testing.T) {
	t.Parallel()

	d := Duration(90 * time.Second)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"1m30s"` {
		t.Errorf("Marshal() = %s, want \"1m30s\"", data)
	}

	var parsed Duration
	if err := json.Unmarshal([]byte(`"45s"`), &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if parsed.Duration() != 45*time.Second {
		t.Errorf("Unmarshal() = %v, want 45s", parsed.Duration())
	}
}

func TestDurationJSONNull(t *testing.T) {
	t.Parallel()

	var d Duration
	if err := json.Unmarshal([]byte("null"), &d); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if d != 0 {
		t.Errorf("Unmarshal(null) = %v, want 0", d)
	}
}

func TestDurationJSONInvalid(t *testing.T) {
	t.Parallel()

	var d Duration
	if err := json.Unmarshal([]byte(`"not-a-duration"`), &d); err == nil {
		t.Error("Unmarshal() expected error for invalid duration")
	}
}

func TestServiceConfigYAML(t *testing.T) {
	t.Parallel()

	input := `
name: rcflow
version: "1.0"
server:
  port: 8080
  dev_mode: true
  shutdown_timeout: 15s
storage:
  backend: postgres
  postgres:
    host: db.internal
    port: 5432
    database: rcflow
firebase:
  projects:
    prod: my-prod-project
    staging: my-staging-project
slack:
  webhook_url: https://hooks.slack.com/services/T/B/X
openai:
  api_key: sk-test
logging:
  level: debug
  production: true
resilience:
  upstream_timeout: 20s
`

	var cfg ServiceConfig
	if err := yaml.Unmarshal([]byte(input), &cfg); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}

	if cfg.Name != "rcflow" {
		t.Errorf("Name = %q, want rcflow", cfg.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if !cfg.Server.DevMode {
		t.Error("Server.DevMode = false, want true")
	}
	if cfg.Server.ShutdownTimeout.Duration() != 15*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout.Duration())
	}
	if cfg.Storage.Backend != BackendPostgres {
		t.Errorf("Storage.Backend = %q, want postgres", cfg.Storage.Backend)
	}
	if cfg.Storage.Postgres.Host != "db.internal" {
		t.Errorf("Storage.Postgres.Host = %q", cfg.Storage.Postgres.Host)
	}
	if cfg.Firebase.Projects["prod"] != "my-prod-project" {
		t.Errorf("Firebase.Projects[prod] = %q", cfg.Firebase.Projects["prod"])
	}
	if cfg.Slack.WebhookURL == "" {
		t.Error("Slack.WebhookURL should be set")
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("OpenAI.APIKey = %q", cfg.OpenAI.APIKey)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Production {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Resilience.UpstreamTimeout.Duration() != 20*time.Second {
		t.Errorf("Resilience.UpstreamTimeout = %v, want 20s", cfg.Resilience.UpstreamTimeout.Duration())
	}
}
