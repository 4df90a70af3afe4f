// Package githubingest ingests open pull requests the configured user
// is involved in. Each PR becomes a machine-owned note under
// _ingest/github/ in the vault; PRs that drop out of the search results
// are marked inactive rather than deleted.
package githubingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/github"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/vault"
)

// ingestDir is the vault-relative directory PR notes land in.
var ingestDir = filepath.Join("_ingest", "github")

// Client is the subset of the GitHub API the workflow depends on.
type Client interface {
	SearchInvolvedPullRequests(ctx context.Context, username string) ([]github.IssueRef, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	Timeline(ctx context.Context, owner, repo string, number int) ([]github.TimelineEvent, error)
}

// Workflow ingests open pull requests into the vault. It is stateless:
// the vault notes themselves are the working documents.
type Workflow struct {
	client   Client
	vault    *vault.Vault
	username string
	logger   log.Logger
}

// Options configures the GitHub ingest workflow.
type Options struct {
	// Client calls the GitHub API. Required.
	Client Client

	// Vault is the target note vault. Required.
	Vault *vault.Vault

	// Username is the account whose involvement is ingested. Required.
	Username string

	// Logger defaults to a null logger.
	Logger log.Logger
}

// New creates the GitHub ingest workflow.
func New(opts Options) (*Workflow, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("github client required")
	}
	if opts.Vault == nil {
		return nil, fmt.Errorf("vault required")
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("github username required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Workflow{
		client:   opts.Client,
		vault:    opts.Vault,
		username: opts.Username,
		logger:   logger,
	}, nil
}

func (w *Workflow) Name() string {
	return "github_ingest"
}

func (w *Workflow) Description() string {
	return "Ingests open pull requests involving the user into the vault"
}

func (w *Workflow) Run(ctx context.Context, run *cadence.RunContext, state cadence.State) (cadence.State, error) {
	w.logger.Info("fetching open pull requests", "username", w.username)

	refs, err := w.client.SearchInvolvedPullRequests(ctx, w.username)
	if err != nil {
		return nil, err
	}
	w.logger.Info("found open pull requests", "count", len(refs))

	seen := map[string]bool{}
	for _, ref := range refs {
		filename, err := w.ingestPullRequest(ctx, run, ref.HTMLURL)
		if err != nil {
			// One broken PR must not abort the whole ingest.
			w.logger.Error("failed to ingest pull request", "url", ref.HTMLURL, "error", err)
			continue
		}
		seen[filename] = true
	}

	if !run.DryRun() {
		if err := w.markVanished(seen); err != nil {
			return nil, err
		}
	}

	w.logger.Info("github ingest complete", "active", len(seen))
	return state.Copy(), nil
}

// ingestPullRequest fetches one PR and writes (or would write, in dry
// run) its note, returning the note filename.
func (w *Workflow) ingestPullRequest(ctx context.Context, run *cadence.RunContext, prURL string) (string, error) {
	owner, repo, number, err := github.ParsePullRequestURL(prURL)
	if err != nil {
		return "", err
	}
	pr, err := w.client.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return "", err
	}
	timeline, err := w.client.Timeline(ctx, owner, repo, number)
	if err != nil {
		return "", err
	}

	role := determineRole(pr, timeline, w.username)
	filename := fmt.Sprintf("pr-%s-%s-%d.md", owner, repo, number)
	relPath := filepath.Join(ingestDir, filename)

	if run.DryRun() {
		w.logger.Info("dry run: would write pull request note", "path", relPath)
		return filename, nil
	}

	content, err := formatPullRequest(pr, owner, repo, w.username, role, timeline, true)
	if err != nil {
		return "", err
	}
	if _, err := w.vault.WriteNote(relPath, content); err != nil {
		return "", err
	}
	w.logger.Info("wrote pull request note", "path", relPath, "role", role)
	return filename, nil
}

// markVanished flags notes for PRs no longer in the search results as
// inactive.
func (w *Workflow) markVanished(seen map[string]bool) error {
	entries, err := os.ReadDir(w.vault.Path(ingestDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to scan ingest directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "pr-") || !strings.HasSuffix(name, ".md") {
			continue
		}
		if seen[name] {
			continue
		}
		if err := markInactive(w.vault.Path(ingestDir, name)); err != nil {
			w.logger.Error("failed to mark note inactive", "note", name, "error", err)
			continue
		}
		w.logger.Info("marked pull request inactive", "note", name)
	}
	return nil
}

// determineRole reports the user's relationship to a PR: author,
// reviewer, or both. An involved user who neither authored nor reviewed
// (mentioned, assigned) counts as a reviewer.
func determineRole(pr *github.PullRequest, timeline []github.TimelineEvent, username string) string {
	isAuthor := pr.User.Login == username
	isReviewer := false
	for _, event := range timeline {
		if event.Kind == "review" && event.Actor == username {
			isReviewer = true
			break
		}
	}
	switch {
	case isAuthor && isReviewer:
		return "both"
	case isAuthor:
		return "author"
	default:
		return "reviewer"
	}
}
