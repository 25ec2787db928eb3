package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/rcflow/rcflow/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
	showSchema bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate an rcflow configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version)
  - Field types and constraints
  - Storage, Firebase and logging settings
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  rcflow validate -c config.yaml

  # Strict validation (fail on missing env vars)
  rcflow validate -c config.yaml --strict

  # Show the JSON schema for configuration
  rcflow validate --schema`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showSchema {
				return a.showConfigSchema()
			}
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")
	cmd.Flags().BoolVar(&opts.showSchema, "schema", false, "Show JSON schema for configuration")

	return cmd
}

// validateConfig validates the configuration file.
func (a *App) validateConfig(opts *validateOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loaderOpts := []infraconfig.LoaderOption{
		infraconfig.WithValidation(true),
	}
	if opts.strict {
		loaderOpts = append(loaderOpts, infraconfig.WithStrictEnv(true))
	}

	loader := infraconfig.NewLoaderWithOptions(loaderOpts...)
	config, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", config.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", config.Version)

	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Listen: %s:%d\n", config.Server.Host, config.Server.Port)
	fmt.Fprintf(a.stdout, "  Storage backend: %s\n", config.Storage.Backend)

	if len(config.Firebase.Projects) > 0 {
		fmt.Fprintf(a.stdout, "  Firebase projects:\n")
		for env, project := range config.Firebase.Projects {
			fmt.Fprintf(a.stdout, "    - %s: %s\n", env, project)
		}
	} else if config.Firebase.ProjectID != "" {
		fmt.Fprintf(a.stdout, "  Firebase project: %s\n", config.Firebase.ProjectID)
	}

	if config.Slack.WebhookURL != "" {
		fmt.Fprintf(a.stdout, "  Slack notifications: enabled\n")
	}
	if config.OpenAI.APIKey != "" {
		model := config.OpenAI.Model
		if model == "" {
			model = "default"
		}
		fmt.Fprintf(a.stdout, "  AI summaries: enabled (model=%s)\n", model)
	}
	if config.Server.DevMode {
		fmt.Fprintf(a.stdout, "  Dev mode: enabled\n")
	}

	return nil
}

// showConfigSchema displays the JSON schema for configuration.
func (a *App) showConfigSchema() error {
	schemaJSON, err := infraconfig.SchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Fprintln(a.stdout, schemaJSON)
	return nil
}
