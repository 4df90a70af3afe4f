package vault

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// inboxDir is the vault-relative directory for notifications.
const inboxDir = "_inbox"

// NotificationOptions describes one inbox notification.
type NotificationOptions struct {
	// Title becomes the note heading and part of the filename.
	Title string

	// Type classifies the notification (e.g. "meeting_transcript",
	// "github_pr").
	Type string

	// SourcePath points at the artifact the notification refers to.
	// Absolute paths inside the vault are converted to vault-relative
	// wikilinks.
	SourcePath string

	// Metadata adds extra frontmatter fields.
	Metadata map[string]string

	// CreatedAt defaults to the current time.
	CreatedAt time.Time
}

// CreateNotification writes a notification note into the vault inbox
// and returns its path.
func (v *Vault) CreateNotification(opts NotificationOptions) (string, error) {
	createdAt := opts.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	sourceLink := opts.SourcePath
	if filepath.IsAbs(sourceLink) {
		if rel, err := filepath.Rel(v.root, sourceLink); err == nil && !strings.HasPrefix(rel, "..") {
			sourceLink = rel
		}
	}
	sourceLink = filepath.ToSlash(sourceLink)

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "type: %s\n", opts.Type)
	fmt.Fprintf(&b, "created: %s\n", createdAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "source: \"[[%s]]\"\n", sourceLink)
	keys := make([]string, 0, len(opts.Metadata))
	for key := range opts.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %s\n", key, opts.Metadata[key])
	}
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n", opts.Title)
	if url, ok := opts.Metadata["pr_url"]; ok && opts.Type == "github_pr" {
		fmt.Fprintf(&b, "\n[View PR on GitHub](%s)\n", url)
	}

	filename := fmt.Sprintf("%s-%s.md", createdAt.Format("20060102-150405"), Slug(opts.Title, 50))
	return v.WriteNote(filepath.Join(inboxDir, filename), b.String())
}
