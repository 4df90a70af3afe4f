// Package coreagents keeps the vault's agent instruction documents in
// sync with the templates bundled into the binary. Templates land in
// .github/agents/ inside the vault and are rewritten only when their
// content hash differs.
package coreagents

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/vault"
)

//go:embed templates/*.agent.md
var templates embed.FS

// coreAgents are the agent documents this workflow maintains.
var coreAgents = []string{"inbox"}

// agentsDir is the vault-relative directory for agent documents.
var agentsDir = filepath.Join(".github", "agents")

// Workflow syncs bundled agent templates into the vault.
type Workflow struct {
	vault  *vault.Vault
	logger log.Logger
}

// Options configures the core agents workflow.
type Options struct {
	// Vault is the target note vault. Required.
	Vault *vault.Vault

	// Logger defaults to a null logger.
	Logger log.Logger
}

// New creates the core agents workflow.
func New(opts Options) (*Workflow, error) {
	if opts.Vault == nil {
		return nil, fmt.Errorf("vault required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Workflow{vault: opts.Vault, logger: logger}, nil
}

func (w *Workflow) Name() string {
	return "core_agents"
}

func (w *Workflow) Description() string {
	return "Maintains core agent instruction documents in the vault"
}

// Run syncs each core agent template. The optional "agent" argument
// restricts the sync to a single agent. State records the checksum of
// each synced document.
func (w *Workflow) Run(ctx context.Context, run *cadence.RunContext, state cadence.State) (cadence.State, error) {
	agents := coreAgents
	if specific := run.Arg("agent"); specific != "" {
		if !contains(coreAgents, specific) {
			return nil, fmt.Errorf("unknown agent %q (available: %v)", specific, coreAgents)
		}
		agents = []string{specific}
	}

	checksums := map[string]any{}
	for _, id := range agents {
		content, err := templates.ReadFile("templates/" + id + ".agent.md")
		if err != nil {
			return nil, fmt.Errorf("failed to load template for agent %q: %w", id, err)
		}
		sum := checksum(content)
		checksums[id] = sum

		relPath := filepath.Join(agentsDir, id+".agent.md")
		if w.upToDate(relPath, sum) {
			w.logger.Info("agent up to date", "agent", id)
			continue
		}
		if run.DryRun() {
			w.logger.Info("dry run: would write agent document", "agent", id, "path", relPath)
			continue
		}
		if _, err := w.vault.WriteNote(relPath, string(content)); err != nil {
			return nil, err
		}
		w.logger.Info("wrote agent document", "agent", id, "path", relPath)
	}

	newState := state.Copy()
	newState["checksums"] = checksums
	return newState, nil
}

// upToDate reports whether the vault already holds this exact content.
func (w *Workflow) upToDate(relPath, sum string) bool {
	if !w.vault.NoteExists(relPath) {
		return false
	}
	existing, err := os.ReadFile(w.vault.Path(relPath))
	if err != nil {
		return false
	}
	return checksum(existing) == sum
}

func checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
