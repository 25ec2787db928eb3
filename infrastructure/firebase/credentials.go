package firebase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

const (
	// remoteConfigScope is the OAuth scope required by the Remote
	// Config REST API.
	remoteConfigScope = "https://www.googleapis.com/auth/firebase.remoteconfig"

	// googleTokenURL is Google's OAuth2 token endpoint.
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

// Credentials holds the parts of a Google service account needed to
// authenticate against the Remote Config API.
type Credentials struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// CredentialsFromFile loads service account credentials from a JSON
// key file.
func CredentialsFromFile(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	return &creds, nil
}

// CredentialsFromEnv builds credentials from environment-style values.
// Escaped newlines in the private key are unescaped, matching how keys
// are commonly stored in env vars.
func CredentialsFromEnv(projectID, clientEmail, privateKey string) (*Credentials, error) {
	creds := &Credentials{
		ProjectID:   projectID,
		ClientEmail: clientEmail,
		PrivateKey:  strings.ReplaceAll(privateKey, `\n`, "\n"),
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return creds, nil
}

// Validate checks that all required fields are present.
func (c *Credentials) Validate() error {
	if c.ClientEmail == "" {
		return fmt.Errorf("service account: client_email is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("service account: private_key is required")
	}
	return nil
}

// TokenSource returns an OAuth2 token source that signs JWT assertions
// with the service account key.
func (c *Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	cfg := &jwt.Config{
		Email:      c.ClientEmail,
		PrivateKey: []byte(c.PrivateKey),
		Scopes:     []string{remoteConfigScope},
		TokenURL:   googleTokenURL,
	}
	return cfg.TokenSource(ctx)
}
