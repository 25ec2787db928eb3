package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	// Path is the configuration path (e.g., "storage.backend").
	Path string
	// Message describes the error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates service configurations.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *ServiceConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateServer(config)
	v.validateStorage(config)
	v.validateFirebase(config)
	v.validateLogging(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *ServiceConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateServer(config *ServiceConfig) {
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		v.addError("server.port", "port must be between 0 and 65535")
	}
	if config.Server.ShutdownTimeout < 0 {
		v.addError("server.shutdown_timeout", "shutdown timeout cannot be negative")
	}
}

func (v *Validator) validateStorage(config *ServiceConfig) {
	switch config.Storage.Backend {
	case "", BackendMemory:
		// Memory needs no further configuration.
	case BackendMongoDB:
		if config.Storage.MongoDB.URI == "" {
			v.addError("storage.mongodb.uri", "uri is required for the mongodb backend")
		}
	case BackendPostgres:
		if config.Storage.Postgres.Host == "" {
			v.addError("storage.postgres.host", "host is required for the postgres backend")
		}
		if config.Storage.Postgres.Port < 0 || config.Storage.Postgres.Port > 65535 {
			v.addError("storage.postgres.port", "port must be between 0 and 65535")
		}
	default:
		v.addError("storage.backend",
			fmt.Sprintf("unknown backend %q (must be memory, mongodb or postgres)", config.Storage.Backend))
	}
}

func (v *Validator) validateFirebase(config *ServiceConfig) {
	fb := config.Firebase

	hasFile := fb.CredentialsFile != ""
	hasInline := fb.ClientEmail != "" || fb.PrivateKey != ""
	if hasInline && (fb.ClientEmail == "" || fb.PrivateKey == "") {
		v.addError("firebase", "client_email and private_key must be set together")
	}
	if hasFile && hasInline {
		v.addError("firebase", "credentials_file and inline credentials are mutually exclusive")
	}

	for env := range fb.Projects {
		if env != "prod" && env != "staging" {
			v.addError("firebase.projects",
				fmt.Sprintf("unknown environment %q (must be prod or staging)", env))
		}
	}
}

func (v *Validator) validateLogging(config *ServiceConfig) {
	switch strings.ToLower(config.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		v.addError("logging.level",
			fmt.Sprintf("unknown level %q", config.Logging.Level))
	}
}
