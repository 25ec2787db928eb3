// Package firebase implements the Remote Config source and publisher
// against the Firebase Remote Config REST API.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/rcflow/rcflow/domain/remoteconfig"
	"github.com/rcflow/rcflow/infrastructure/resilience"
)

// DefaultBaseURL is the production Remote Config API endpoint.
const DefaultBaseURL = "https://firebaseremoteconfig.googleapis.com"

// Config configures the Remote Config API client.
type Config struct {
	// BaseURL is the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Projects maps each environment to its Firebase project ID.
	Projects map[remoteconfig.Env]string

	// TokenSource supplies OAuth2 tokens. Leave nil only for tests
	// against an unauthenticated endpoint.
	TokenSource oauth2.TokenSource

	// HTTPClient overrides the transport. When nil a client is built
	// from TokenSource.
	HTTPClient *http.Client

	// Timeout bounds a single API call. Defaults to 30s.
	Timeout time.Duration
}

// Client talks to the Firebase Remote Config REST API. It implements
// both remoteconfig.Source and remoteconfig.Publisher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	projects   map[remoteconfig.Env]string
	fetcher    *resilience.Executor[*template]
	publisher  *resilience.Executor[struct{}]
	timeout    time.Duration
}

// NewClient creates a Remote Config API client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Projects) == 0 {
		return nil, fmt.Errorf("firebase: at least one project must be configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.TokenSource != nil {
			httpClient = oauth2.NewClient(context.Background(), cfg.TokenSource)
		} else {
			httpClient = &http.Client{}
		}
	}

	execCfg := resilience.DefaultExecutorConfig()
	execCfg.DefaultTimeout = timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		projects:   cfg.Projects,
		fetcher:    resilience.NewExecutor[*template](execCfg),
		publisher:  resilience.NewExecutor[struct{}](execCfg),
		timeout:    timeout,
	}, nil
}

// Snapshot fetches the live template for env and converts it to a
// domain snapshot.
func (c *Client) Snapshot(ctx context.Context, env remoteconfig.Env) (*remoteconfig.Snapshot, error) {
	tmpl, err := c.fetcher.Execute(ctx, func(ctx context.Context) (*template, error) {
		return c.getTemplate(ctx, env)
	})
	if err != nil {
		return nil, err
	}

	return tmpl.toSnapshot(), nil
}

// Publish writes the snapshot as the new live template for env. The
// current template is fetched first so the write carries its etag and
// preserves parameter groups the workflow does not manage. The etag
// makes the write conditional: a template changed underneath us fails
// instead of clobbering.
func (c *Client) Publish(ctx context.Context, env remoteconfig.Env, snapshot *remoteconfig.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("firebase: nil snapshot")
	}

	// Retries are limited to the read. The PUT runs once: a timed-out
	// publish may have landed, and replaying it against a stale etag
	// cannot succeed anyway.
	current, err := c.fetcher.Execute(ctx, func(ctx context.Context) (*template, error) {
		return c.getTemplate(ctx, env)
	})
	if err != nil {
		return fmt.Errorf("fetch current template: %w", err)
	}

	body := templateFromSnapshot(snapshot)
	body.ParameterGroups = current.ParameterGroups

	_, err = c.publisher.ExecuteOnce(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.putTemplate(ctx, env, body, current.etag)
	})
	return err
}

func (c *Client) projectID(env remoteconfig.Env) (string, error) {
	id, ok := c.projects[env]
	if !ok || id == "" {
		return "", fmt.Errorf("firebase: no project configured for environment %q", env)
	}
	return id, nil
}

func (c *Client) templateURL(env remoteconfig.Env) (string, error) {
	project, err := c.projectID(env)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/v1/projects/%s/remoteConfig", c.baseURL, project), nil
}

func (c *Client) getTemplate(ctx context.Context, env remoteconfig.Env) (*template, error) {
	url, err := c.templateURL(env)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var tmpl template
	if err := json.NewDecoder(resp.Body).Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	tmpl.etag = resp.Header.Get("ETag")

	return &tmpl, nil
}

func (c *Client) putTemplate(ctx context.Context, env remoteconfig.Env, tmpl *template, etag string) error {
	url, err := c.templateURL(env)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if etag == "" {
		// Force-publish when the read returned no etag.
		etag = "*"
	}
	req.Header.Set("If-Match", etag)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put template: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	return nil
}

// apiError extracts the error message from a Remote Config API error
// response.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var payload struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return fmt.Errorf("remote config api: %s (%s)", payload.Error.Message, resp.Status)
	}

	return fmt.Errorf("remote config api: unexpected status %s", resp.Status)
}

// newSnapshotID generates snapshot IDs for fetched templates.
func newSnapshotID() string {
	return uuid.New().String()
}

var (
	_ remoteconfig.Source    = (*Client)(nil)
	_ remoteconfig.Publisher = (*Client)(nil)
)
