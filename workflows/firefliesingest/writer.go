package firefliesingest

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/deepnoodle-ai/cadence/fireflies"
	"github.com/deepnoodle-ai/cadence/vault"
)

// ingestDir is the vault-relative directory transcript notes land in.
var ingestDir = filepath.Join("_ingest", "fireflies")

// meetingFrontmatter is the structured header of a transcript note.
type meetingFrontmatter struct {
	Source      string `yaml:"source"`
	FirefliesID string `yaml:"fireflies_id"`
	MeetingDate string `yaml:"meeting_date"`
	Sentences   int    `yaml:"sentences"`
}

// noteTitle returns the display title for a transcript.
func noteTitle(t *fireflies.Transcript) string {
	if t.Title != "" {
		return t.Title
	}
	return "Meeting"
}

// noteRelPath returns the deterministic vault-relative path for a
// transcript note. The transcript ID in the filename makes re-ingest
// idempotent.
func noteRelPath(t *fireflies.Transcript) string {
	filename := fmt.Sprintf("%s - %s - ff_%s.md",
		t.EndedAt().Format("2006-01-02"),
		vault.Slug(noteTitle(t), 60),
		t.ID,
	)
	return filepath.Join(ingestDir, filename)
}

// writeMeeting writes a transcript note unless it already exists, and
// returns the note path.
func (w *Workflow) writeMeeting(t *fireflies.Transcript) (string, error) {
	relPath := noteRelPath(t)
	if w.vault.NoteExists(relPath) {
		w.logger.Info("meeting note already exists", "path", relPath)
		return w.vault.Path(relPath), nil
	}

	content, err := formatMeeting(t)
	if err != nil {
		return "", err
	}
	path, err := w.vault.WriteNote(relPath, content)
	if err != nil {
		return "", err
	}
	w.logger.Info("wrote meeting note", "path", relPath)
	return path, nil
}

// formatMeeting renders a transcript as a markdown note: frontmatter,
// the AI summary when present, then the full transcript.
func formatMeeting(t *fireflies.Transcript) (string, error) {
	fm, err := vault.Frontmatter(meetingFrontmatter{
		Source:      "fireflies",
		FirefliesID: t.ID,
		MeetingDate: t.EndedAt().Format(time.RFC3339),
		Sentences:   len(t.Sentences),
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fm)
	fmt.Fprintf(&b, "# %s\n\n", noteTitle(t))

	if t.Summary != nil {
		b.WriteString("## Summary\n\n")
		if t.Summary.Overview != "" {
			b.WriteString(t.Summary.Overview)
			b.WriteString("\n\n")
		}
		if t.Summary.ActionItems != "" {
			b.WriteString("### Action Items\n\n")
			b.WriteString(t.Summary.ActionItems)
			b.WriteString("\n\n")
		}
		if len(t.Summary.Keywords) > 0 {
			fmt.Fprintf(&b, "**Keywords**: %s\n\n", strings.Join(t.Summary.Keywords, ", "))
		}
	}

	b.WriteString("## Transcript\n\n")
	for _, sentence := range t.Sentences {
		fmt.Fprintf(&b, "[%s] **%s**: %s\n", formatOffset(sentence.StartTime), sentence.SpeakerName, sentence.Text)
	}
	return b.String(), nil
}

// formatOffset renders a sentence start offset in seconds as mm:ss.
func formatOffset(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
