package main

import (
	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/config"
	"github.com/deepnoodle-ai/cadence/fireflies"
	"github.com/deepnoodle-ai/cadence/github"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/runner"
	"github.com/deepnoodle-ai/cadence/vault"
	"github.com/deepnoodle-ai/cadence/workflows/coreagents"
	"github.com/deepnoodle-ai/cadence/workflows/counter"
	"github.com/deepnoodle-ai/cadence/workflows/extractmeetings"
	"github.com/deepnoodle-ai/cadence/workflows/firefliesingest"
	"github.com/deepnoodle-ai/cadence/workflows/githubingest"
)

// app holds the wired framework components for one CLI invocation.
type app struct {
	registry *cadence.Registry
	runner   *runner.Runner
	vault    *vault.Vault
}

// bootstrap constructs the registry, state store, and runner from the
// resolved configuration. Workflows whose external dependencies are not
// configured are skipped with a warning rather than failing startup, so
// a partial config still supports the workflows it can.
func bootstrap(cfg *config.Config, logger log.Logger) (*app, error) {
	registry := cadence.NewRegistry()
	registry.Register(counter.New(logger))

	var notes *vault.Vault
	if cfg.VaultDir != "" {
		v, err := vault.New(cfg.VaultDir, logger)
		if err != nil {
			return nil, err
		}
		notes = v
	}

	if notes != nil {
		agents, err := coreagents.New(coreagents.Options{
			Vault:  notes,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(agents)

		extractor, err := extractmeetings.New(extractmeetings.Options{
			Vault:  notes,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(extractor)
	} else {
		logger.Warn("vault_dir not configured, vault workflows unavailable")
	}

	if notes != nil && cfg.GitHub.Username != "" {
		ingest, err := githubingest.New(githubingest.Options{
			Client: github.NewClient(github.ClientOptions{
				Token:  cfg.GitHub.Token,
				Logger: logger,
			}),
			Vault:    notes,
			Username: cfg.GitHub.Username,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(ingest)
	}

	if notes != nil && cfg.Fireflies.APIKey != "" {
		ingest, err := firefliesingest.New(firefliesingest.Options{
			Client: fireflies.NewClient(fireflies.ClientOptions{
				APIKey: cfg.Fireflies.APIKey,
				Logger: logger,
			}),
			Vault:  notes,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(ingest)
	}

	r, err := newRunner(cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	return &app{registry: registry, runner: r, vault: notes}, nil
}
