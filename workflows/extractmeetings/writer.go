package extractmeetings

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/deepnoodle-ai/cadence/vault"
)

// recordFrontmatter is the structured header of a meeting record.
type recordFrontmatter struct {
	Workflow  string `yaml:"workflow"`
	State     string `yaml:"state"`
	CreatedBy string `yaml:"created_by"`
	CreatedAt string `yaml:"created_at"`
}

// writeRecord writes the machine-owned record for one transcript. The
// record links back to the transcript note with a wikilink so the vault
// graph connects the two.
func (w *Workflow) writeRecord(meetingID, transcriptName string) error {
	content, err := formatRecord(transcriptName, time.Now().UTC())
	if err != nil {
		return err
	}
	_, err = w.vault.WriteNote(filepath.Join(recordsDir, meetingID+".md"), content)
	return err
}

// formatRecord renders a meeting record as a markdown note.
func formatRecord(transcriptName string, createdAt time.Time) (string, error) {
	fm, err := vault.Frontmatter(recordFrontmatter{
		Workflow:  "meeting",
		State:     "unprocessed",
		CreatedBy: "meeting-extractor",
		CreatedAt: createdAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}

	// Wikilinks always use forward slashes, regardless of platform.
	link := filepath.ToSlash(filepath.Join(ingestDir, strings.TrimSuffix(transcriptName, ".md")))

	var b strings.Builder
	b.WriteString(fm)
	b.WriteString("# Meeting\n\n")
	b.WriteString("Source:\n")
	fmt.Fprintf(&b, "- Transcript: [[%s]]\n\n", link)
	b.WriteString("This file is machine-owned.\n")
	return b.String(), nil
}
