// Package config provides the service configuration model.
package config

import "time"

// ServiceConfig is the complete rcflow service configuration.
type ServiceConfig struct {
	// Name is a human-readable name for this deployment.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	// Server contains HTTP server settings.
	Server ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
	// Storage selects and configures the persistence backend.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	// Firebase configures the Remote Config backend.
	Firebase FirebaseConfig `json:"firebase,omitempty" yaml:"firebase,omitempty"`
	// Slack configures webhook notifications.
	Slack SlackConfig `json:"slack,omitempty" yaml:"slack,omitempty"`
	// OpenAI configures AI summary generation.
	OpenAI OpenAIConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
	// Logging contains log settings.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Resilience contains upstream call settings.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Empty binds all interfaces.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// Port is the listen port.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
	// DevMode enables the fixed development identity for requests
	// without identity headers.
	DevMode bool `json:"dev_mode,omitempty" yaml:"dev_mode,omitempty"`
	// FrontendURL is the review UI base linked from notifications.
	FrontendURL string `json:"frontend_url,omitempty" yaml:"frontend_url,omitempty"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

// StorageBackend names a persistence backend.
type StorageBackend string

const (
	// BackendMemory stores everything in process memory.
	BackendMemory StorageBackend = "memory"
	// BackendMongoDB stores data in MongoDB.
	BackendMongoDB StorageBackend = "mongodb"
	// BackendPostgres stores data in PostgreSQL.
	BackendPostgres StorageBackend = "postgres"
)

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of memory, mongodb or postgres.
	Backend StorageBackend `json:"backend,omitempty" yaml:"backend,omitempty"`
	// MongoDB is used when Backend is mongodb.
	MongoDB MongoDBConfig `json:"mongodb,omitempty" yaml:"mongodb,omitempty"`
	// Postgres is used when Backend is postgres.
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

// MongoDBConfig contains MongoDB connection settings.
type MongoDBConfig struct {
	URI      string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	SSLMode  string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
	Schema   string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// FirebaseConfig configures the Remote Config backend.
type FirebaseConfig struct {
	// CredentialsFile is a path to a service account JSON key.
	CredentialsFile string `json:"credentials_file,omitempty" yaml:"credentials_file,omitempty"`
	// ProjectID is the client email's project when no key file is used.
	ProjectID string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	// ClientEmail and PrivateKey configure credentials inline.
	ClientEmail string `json:"client_email,omitempty" yaml:"client_email,omitempty"`
	PrivateKey  string `json:"private_key,omitempty" yaml:"private_key,omitempty"`
	// Projects maps environments (prod, staging) to Firebase project
	// IDs. An empty map falls back to ProjectID for every environment.
	Projects map[string]string `json:"projects,omitempty" yaml:"projects,omitempty"`
	// BaseURL overrides the API endpoint (for testing).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// SlackConfig configures webhook notifications. An empty webhook URL
// disables Slack delivery.
type SlackConfig struct {
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
}

// OpenAIConfig configures AI summary generation. An empty API key
// disables the OpenAI backend; summaries then use the deterministic
// fallback.
type OpenAIConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`
}

// LoggingConfig contains log settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, error or fatal.
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Production switches to JSON output.
	Production bool `json:"production,omitempty" yaml:"production,omitempty"`
}

// ResilienceConfig contains upstream call settings.
type ResilienceConfig struct {
	// UpstreamTimeout bounds calls to Firebase, Slack and OpenAI.
	UpstreamTimeout Duration `json:"upstream_timeout,omitempty" yaml:"upstream_timeout,omitempty"`
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	// Parse duration
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
