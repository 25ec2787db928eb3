package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Format               string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for the ServiceConfig.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/rcflow/rcflow/service-config.schema.json",
		Title:       "Service Configuration",
		Description: "Configuration schema for the rcflow service",
		Type:        "object",
		Required:    []string{"name", "version"},
		Properties: map[string]*JSONSchema{
			"name": {
				Type:        "string",
				Description: "A human-readable name for this deployment",
			},
			"version": {
				Type:        "string",
				Description: "The configuration schema version",
				Default:     "1.0",
			},
			"server":     generateServerSchema(),
			"storage":    generateStorageSchema(),
			"firebase":   generateFirebaseSchema(),
			"slack":      generateSlackSchema(),
			"openai":     generateOpenAISchema(),
			"logging":    generateLoggingSchema(),
			"resilience": generateResilienceSchema(),
		},
	}
}

func generateServerSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "HTTP server settings",
		Properties: map[string]*JSONSchema{
			"host": {
				Type:        "string",
				Description: "Listen address (empty binds all interfaces)",
			},
			"port": {
				Type:        "integer",
				Description: "Listen port",
				Minimum:     floatPtr(0),
				Maximum:     floatPtr(65535),
				Default:     8080,
			},
			"dev_mode": {
				Type:        "boolean",
				Description: "Use a fixed development identity for anonymous requests",
				Default:     false,
			},
			"frontend_url": {
				Type:        "string",
				Description: "Review UI base linked from notifications",
				Format:      "uri",
			},
			"shutdown_timeout": {
				Type:        "string",
				Description: "Graceful shutdown bound",
				Format:      "duration",
				Default:     "15s",
			},
		},
	}
}

func generateStorageSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Persistence backend selection",
		Properties: map[string]*JSONSchema{
			"backend": {
				Type:        "string",
				Description: "Persistence backend",
				Enum:        []string{"memory", "mongodb", "postgres"},
				Default:     "memory",
			},
			"mongodb": {
				Type:        "object",
				Description: "MongoDB settings (backend: mongodb)",
				Properties: map[string]*JSONSchema{
					"uri": {
						Type:        "string",
						Description: "Connection URI",
						Format:      "uri",
					},
					"database": {
						Type:    "string",
						Default: "rcflow",
					},
				},
			},
			"postgres": {
				Type:        "object",
				Description: "PostgreSQL settings (backend: postgres)",
				Properties: map[string]*JSONSchema{
					"host":     {Type: "string"},
					"port":     {Type: "integer", Minimum: floatPtr(0), Maximum: floatPtr(65535), Default: 5432},
					"database": {Type: "string", Default: "rcflow"},
					"username": {Type: "string"},
					"password": {Type: "string"},
					"ssl_mode": {
						Type: "string",
						Enum: []string{"disable", "require", "verify-ca", "verify-full"},
					},
					"schema": {Type: "string", Default: "public"},
				},
			},
		},
	}
}

func generateFirebaseSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Firebase Remote Config backend",
		Properties: map[string]*JSONSchema{
			"credentials_file": {
				Type:        "string",
				Description: "Path to a service account JSON key",
			},
			"project_id": {
				Type:        "string",
				Description: "Default Firebase project ID",
			},
			"client_email": {
				Type:        "string",
				Description: "Service account email (inline credentials)",
			},
			"private_key": {
				Type:        "string",
				Description: "Service account private key (inline credentials)",
			},
			"projects": {
				Type:                 "object",
				Description:          "Per-environment project IDs (keys: prod, staging)",
				AdditionalProperties: &JSONSchema{Type: "string"},
			},
		},
	}
}

func generateSlackSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Slack notifications",
		Properties: map[string]*JSONSchema{
			"webhook_url": {
				Type:        "string",
				Description: "Incoming webhook URL (empty disables notifications)",
				Format:      "uri",
			},
		},
	}
}

func generateOpenAISchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "AI summary generation",
		Properties: map[string]*JSONSchema{
			"api_key": {
				Type:        "string",
				Description: "OpenAI API key (empty uses the fallback renderer)",
			},
			"model": {
				Type:        "string",
				Description: "Chat model",
				Default:     "gpt-4",
			},
		},
	}
}

func generateLoggingSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Log settings",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"trace", "debug", "info", "warn", "error", "fatal"},
				Default: "info",
			},
			"production": {
				Type:        "boolean",
				Description: "JSON output",
				Default:     false,
			},
		},
	}
}

func generateResilienceSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Upstream call settings",
		Properties: map[string]*JSONSchema{
			"upstream_timeout": {
				Type:        "string",
				Description: "Bound on calls to Firebase, Slack and OpenAI",
				Format:      "duration",
				Default:     "30s",
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	schema := GenerateSchema()
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
