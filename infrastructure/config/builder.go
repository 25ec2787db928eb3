package config

import (
	"context"
	"fmt"
	"time"

	"github.com/rcflow/rcflow/domain/audit"
	"github.com/rcflow/rcflow/domain/changerequest"
	domainconfig "github.com/rcflow/rcflow/domain/config"
	domainnotif "github.com/rcflow/rcflow/domain/notification"
	"github.com/rcflow/rcflow/domain/remoteconfig"
	domainsummary "github.com/rcflow/rcflow/domain/summary"
	"github.com/rcflow/rcflow/infrastructure/firebase"
	"github.com/rcflow/rcflow/infrastructure/logging"
	infranotif "github.com/rcflow/rcflow/infrastructure/notification"
	"github.com/rcflow/rcflow/infrastructure/storage/memory"
	"github.com/rcflow/rcflow/infrastructure/storage/mongodb"
	"github.com/rcflow/rcflow/infrastructure/storage/postgres"
	infrasummary "github.com/rcflow/rcflow/infrastructure/summary"
)

// Builder materializes infrastructure components from configuration.
type Builder struct {
	config *domainconfig.ServiceConfig
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.ServiceConfig) *Builder {
	return &Builder{config: config}
}

// BuildResult contains the built components from configuration.
type BuildResult struct {
	// Requests is the change request store.
	Requests changerequest.Store
	// AuditLog is the audit log store.
	AuditLog audit.Store
	// Source fetches live templates.
	Source remoteconfig.Source
	// Publisher writes live templates.
	Publisher remoteconfig.Publisher
	// Notifier delivers review events; nil when Slack is not
	// configured.
	Notifier domainnotif.Notifier
	// Summarizer generates AI summaries; nil when OpenAI is not
	// configured.
	Summarizer domainsummary.Generator
	// UpstreamTimeout bounds external calls.
	UpstreamTimeout time.Duration

	closers []func(context.Context) error
}

// Close releases held connections.
func (r *BuildResult) Close(ctx context.Context) error {
	var firstErr error
	for _, closer := range r.closers {
		if err := closer(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build materializes the configured components.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	result := &BuildResult{
		UpstreamTimeout: b.config.Resilience.UpstreamTimeout.Duration(),
	}

	if err := b.buildStorage(ctx, result); err != nil {
		return nil, fmt.Errorf("%w: storage: %w", domainconfig.ErrBuildFailed, err)
	}
	if err := b.buildFirebase(ctx, result); err != nil {
		_ = result.Close(ctx)
		return nil, fmt.Errorf("%w: firebase: %w", domainconfig.ErrBuildFailed, err)
	}
	if err := b.buildNotifier(result); err != nil {
		_ = result.Close(ctx)
		return nil, fmt.Errorf("%w: slack: %w", domainconfig.ErrBuildFailed, err)
	}
	if err := b.buildSummarizer(result); err != nil {
		_ = result.Close(ctx)
		return nil, fmt.Errorf("%w: openai: %w", domainconfig.ErrBuildFailed, err)
	}

	return result, nil
}

func (b *Builder) buildStorage(ctx context.Context, result *BuildResult) error {
	switch b.config.Storage.Backend {
	case "", domainconfig.BackendMemory:
		result.Requests = memory.NewChangeRequestStore()
		result.AuditLog = memory.NewAuditStore()

	case domainconfig.BackendMongoDB:
		opts := []mongodb.ConfigOption{mongodb.WithURI(b.config.Storage.MongoDB.URI)}
		if b.config.Storage.MongoDB.Database != "" {
			opts = append(opts, mongodb.WithDatabase(b.config.Storage.MongoDB.Database))
		}
		client, err := mongodb.NewClient(ctx, opts...)
		if err != nil {
			return err
		}
		if err := client.CreateIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return err
		}
		result.Requests = mongodb.NewChangeRequestStore(client, "")
		result.AuditLog = mongodb.NewAuditStore(client, "")
		result.closers = append(result.closers, client.Close)

	case domainconfig.BackendPostgres:
		pg := b.config.Storage.Postgres
		opts := []postgres.ConfigOption{postgres.WithHost(pg.Host)}
		if pg.Port != 0 {
			opts = append(opts, postgres.WithPort(pg.Port))
		}
		if pg.Database != "" {
			opts = append(opts, postgres.WithDatabase(pg.Database))
		}
		if pg.Username != "" {
			opts = append(opts, postgres.WithCredentials(pg.Username, pg.Password))
		}
		if pg.SSLMode != "" {
			opts = append(opts, postgres.WithSSLMode(pg.SSLMode))
		}
		if pg.Schema != "" {
			opts = append(opts, postgres.WithSchema(pg.Schema))
		}
		pool, err := postgres.NewPool(ctx, postgres.DefaultConfig(), opts...)
		if err != nil {
			return err
		}

		requests := postgres.NewChangeRequestStore(pool, pg.Schema)
		auditLog := postgres.NewAuditStore(pool, pg.Schema)
		if err := requests.Migrate(ctx); err != nil {
			pool.Close()
			return err
		}
		if err := auditLog.Migrate(ctx); err != nil {
			pool.Close()
			return err
		}

		result.Requests = requests
		result.AuditLog = auditLog
		result.closers = append(result.closers, func(context.Context) error {
			pool.Close()
			return nil
		})

	default:
		return fmt.Errorf("unknown storage backend %q", b.config.Storage.Backend)
	}

	return nil
}

func (b *Builder) buildFirebase(ctx context.Context, result *BuildResult) error {
	fb := b.config.Firebase

	creds, err := b.firebaseCredentials()
	if err != nil {
		return err
	}

	projects := make(map[remoteconfig.Env]string, len(fb.Projects))
	for env, project := range fb.Projects {
		projects[remoteconfig.Env(env)] = project
	}
	if len(projects) == 0 {
		projectID := fb.ProjectID
		if projectID == "" && creds != nil {
			projectID = creds.ProjectID
		}
		if projectID == "" {
			return fmt.Errorf("no Firebase project configured")
		}
		projects[remoteconfig.EnvProd] = projectID
		projects[remoteconfig.EnvStaging] = projectID
	}

	cfg := firebase.Config{
		BaseURL:  fb.BaseURL,
		Projects: projects,
		Timeout:  result.UpstreamTimeout,
	}
	if creds != nil {
		cfg.TokenSource = creds.TokenSource(ctx)
	}

	client, err := firebase.NewClient(cfg)
	if err != nil {
		return err
	}

	result.Source = client
	result.Publisher = client
	return nil
}

func (b *Builder) firebaseCredentials() (*firebase.Credentials, error) {
	fb := b.config.Firebase
	switch {
	case fb.CredentialsFile != "":
		return firebase.CredentialsFromFile(fb.CredentialsFile)
	case fb.ClientEmail != "":
		return firebase.CredentialsFromEnv(fb.ProjectID, fb.ClientEmail, fb.PrivateKey)
	default:
		// Unauthenticated; only usable against a BaseURL override.
		return nil, nil
	}
}

func (b *Builder) buildNotifier(result *BuildResult) error {
	if b.config.Slack.WebhookURL == "" {
		logging.Info().Msg("Slack webhook not configured, notifications disabled")
		return nil
	}

	notifier, err := infranotif.NewSlackNotifier(infranotif.Config{
		WebhookURL:  b.config.Slack.WebhookURL,
		FrontendURL: b.config.Server.FrontendURL,
	})
	if err != nil {
		return err
	}

	result.Notifier = notifier
	return nil
}

func (b *Builder) buildSummarizer(result *BuildResult) error {
	if b.config.OpenAI.APIKey == "" {
		logging.Info().Msg("OpenAI not configured, summaries use the fallback renderer")
		return nil
	}

	generator, err := infrasummary.NewGenerator(infrasummary.Config{
		APIKey: b.config.OpenAI.APIKey,
		Model:  b.config.OpenAI.Model,
	})
	if err != nil {
		return err
	}

	result.Summarizer = generator
	return nil
}
