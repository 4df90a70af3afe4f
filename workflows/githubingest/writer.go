package githubingest

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/deepnoodle-ai/cadence/github"
	"github.com/deepnoodle-ai/cadence/vault"
)

// prFrontmatter is the structured header of a PR ingest note. Field
// order here is the order rendered into the note.
type prFrontmatter struct {
	PRNumber  int    `yaml:"pr_number"`
	RepoOwner string `yaml:"repo_owner"`
	RepoName  string `yaml:"repo_name"`
	Title     string `yaml:"title"`
	State     string `yaml:"state"`
	URL       string `yaml:"url"`
	Author    string `yaml:"author"`
	CreatedAt string `yaml:"created_at"`
	UpdatedAt string `yaml:"updated_at"`
	MyRole    string `yaml:"my_role"`
	Active    bool   `yaml:"active"`
}

// formatPullRequest renders a PR as a markdown note with frontmatter,
// a stats section, and the event timeline.
func formatPullRequest(pr *github.PullRequest, owner, repo, username, role string, timeline []github.TimelineEvent, active bool) (string, error) {
	fm, err := vault.Frontmatter(prFrontmatter{
		PRNumber:  pr.Number,
		RepoOwner: owner,
		RepoName:  repo,
		Title:     pr.Title,
		State:     pr.State,
		URL:       pr.HTMLURL,
		Author:    pr.User.Login,
		CreatedAt: pr.CreatedAt.Format(time.RFC3339),
		UpdatedAt: pr.UpdatedAt.Format(time.RFC3339),
		MyRole:    role,
		Active:    active,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fm)
	fmt.Fprintf(&b, "# %s\n\n", pr.Title)
	if pr.Body != "" {
		b.WriteString(pr.Body)
		b.WriteString("\n\n")
	} else {
		b.WriteString("*No description provided*\n\n")
	}

	b.WriteString("## Stats\n")
	fmt.Fprintf(&b, "- **Changed files**: %d\n", pr.ChangedFiles)
	fmt.Fprintf(&b, "- **Additions**: +%d\n", pr.Additions)
	fmt.Fprintf(&b, "- **Deletions**: -%d\n", pr.Deletions)
	fmt.Fprintf(&b, "- **Commits**: %d\n", pr.Commits)
	fmt.Fprintf(&b, "- **Comments**: %d issue + %d review\n\n", pr.Comments, pr.ReviewComments)

	b.WriteString("## Timeline\n\n")
	for _, event := range timeline {
		fmt.Fprintf(&b, "- **%s** - @%s: %s\n",
			event.Timestamp.UTC().Format("2006-01-02 15:04 UTC"),
			event.Actor,
			formatEvent(event),
		)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// formatEvent renders one timeline event as a short description.
func formatEvent(event github.TimelineEvent) string {
	switch event.Kind {
	case "review":
		return fmt.Sprintf("submitted review (%s)", strings.ToLower(event.Detail))
	case "comment":
		return "commented: " + truncate(event.Detail, 120)
	case "review_comment":
		return "review comment: " + truncate(event.Detail, 120)
	default:
		return event.Kind
	}
}

// truncate shortens a body to at most max runes. Slicing runes rather
// than bytes keeps multibyte text valid.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// markInactive rewrites a note's frontmatter to active: false, leaving
// everything else untouched.
func markInactive(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	updated := strings.Replace(string(content), "active: true", "active: false", 1)
	if updated == string(content) {
		return nil
	}
	return os.WriteFile(path, []byte(updated), 0644)
}
