package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcflow/rcflow/domain/config"
)

const minimalYAML = `
name: rcflow
version: "1.0"
`

func TestLoadStringYAML(t *testing.T) {
	cfg, err := NewLoader().LoadString(minimalYAML, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	if cfg.Name != "rcflow" {
		t.Errorf("Name = %q, want rcflow", cfg.Name)
	}

	// Defaults applied.
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Storage.Backend != config.BackendMemory {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Resilience.UpstreamTimeout.Duration() != 30*time.Second {
		t.Errorf("UpstreamTimeout = %v, want 30s", cfg.Resilience.UpstreamTimeout.Duration())
	}
}

func TestLoadStringJSON(t *testing.T) {
	cfg, err := NewLoader().LoadString(`{"name": "rcflow", "version": "1.0"}`, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "rcflow" {
		t.Errorf("Name = %q, want rcflow", cfg.Name)
	}
}

func TestLoadStringInvalidYAML(t *testing.T) {
	_, err := NewLoader().LoadString("name: [unclosed", FormatYAML)
	if !errors.Is(err, config.ErrInvalidFormat) {
		t.Errorf("LoadString() error = %v, want ErrInvalidFormat", err)
	}
}

func TestLoadStringValidationFailure(t *testing.T) {
	_, err := NewLoader().LoadString(`version: "1.0"`, FormatYAML)
	if !errors.Is(err, config.ErrValidationFailed) {
		t.Errorf("LoadString() error = %v, want ErrValidationFailed", err)
	}
}

func TestLoadStringValidationDisabled(t *testing.T) {
	loader := NewLoaderWithOptions(WithValidation(false))
	if _, err := loader.LoadString(`version: "1.0"`, FormatYAML); err != nil {
		t.Errorf("LoadString() error = %v, want nil with validation off", err)
	}
}

func TestLoadStringExpandsEnv(t *testing.T) {
	t.Setenv("RCFLOW_TEST_NAME", "from-env")

	cfg, err := NewLoader().LoadString(`
name: ${RCFLOW_TEST_NAME}
version: "1.0"
`, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Name != "from-env" {
		t.Errorf("Name = %q, want from-env", cfg.Name)
	}
}

func TestLoadStringStrictEnv(t *testing.T) {
	loader := NewLoaderWithOptions(WithStrictEnv(true))
	_, err := loader.LoadString(`
name: ${RCFLOW_TEST_UNSET_VAR}
version: "1.0"
`, FormatYAML)
	if !errors.Is(err, config.ErrMissingEnvVar) {
		t.Errorf("LoadString() error = %v, want ErrMissingEnvVar", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Name != "rcflow" {
		t.Errorf("Name = %q, want rcflow", cfg.Name)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, config.ErrConfigNotFound) {
		t.Errorf("LoadFile() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("name = 'rcflow'"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	_, err := NewLoader().LoadFile(path)
	if !errors.Is(err, config.ErrUnsupportedFormat) {
		t.Errorf("LoadFile() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestLoadFileDirectory(t *testing.T) {
	_, err := NewLoader().LoadFile(t.TempDir())
	if !errors.Is(err, config.ErrInvalidFormat) {
		t.Errorf("LoadFile() error = %v, want ErrInvalidFormat", err)
	}
}
