package vault

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// meetingFrontmatter is the header for manually created meeting notes.
type meetingFrontmatter struct {
	Source      string `yaml:"source"`
	MeetingDate string `yaml:"meeting_date"`
}

// CreateMeetingNote creates an empty meeting note under meetings/notes
// with manual-source frontmatter and returns its path.
func (v *Vault) CreateMeetingNote(now time.Time) (string, error) {
	fm, err := Frontmatter(meetingFrontmatter{
		Source:      "manual",
		MeetingDate: now.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s - Meeting.md", now.Format("2006-01-02 1504"))
	path, err := v.WriteNote(filepath.Join("meetings", "notes", filename), fm)
	if err != nil {
		return "", err
	}
	v.logger.Info("created meeting note", "path", path)
	return path, nil
}

// ObsidianURI builds an obsidian://open URI for a note path inside the
// vault.
func (v *Vault) ObsidianURI(path string) (string, error) {
	rel, err := filepath.Rel(v.root, path)
	if err != nil {
		return "", fmt.Errorf("note %q is not inside the vault: %w", path, err)
	}
	note := filepath.ToSlash(strings.TrimSuffix(rel, ".md"))
	return fmt.Sprintf("obsidian://open?vault=%s&file=%s",
		url.QueryEscape(v.Name()), url.QueryEscape(note)), nil
}

// OpenNote opens a note in Obsidian via its URI scheme. Best effort:
// the note file itself is already on disk if this fails.
func (v *Vault) OpenNote(path string) error {
	uri, err := v.ObsidianURI(path)
	if err != nil {
		return err
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", uri)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", uri)
	default:
		cmd = exec.Command("xdg-open", uri)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return nil
}
