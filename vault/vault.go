// Package vault writes markdown notes with YAML frontmatter into an
// Obsidian-style note vault. The ingest workflows use it to land raw
// external data; the CLI uses it to create manual notes.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/deepnoodle-ai/cadence/log"
)

// Vault is a directory of markdown notes.
type Vault struct {
	root   string
	logger log.Logger
}

// New creates a Vault rooted at the given directory. The directory must
// already exist; the framework never creates the vault itself.
func New(root string, logger log.Logger) (*Vault, error) {
	if root == "" {
		return nil, fmt.Errorf("vault directory not configured")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault directory %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path %q is not a directory", root)
	}
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Vault{root: root, logger: logger}, nil
}

// Root returns the vault root directory.
func (v *Vault) Root() string {
	return v.root
}

// Name returns the vault name (its directory base name), used when
// building obsidian:// URIs.
func (v *Vault) Name() string {
	return filepath.Base(v.root)
}

// Path joins path elements under the vault root.
func (v *Vault) Path(elem ...string) string {
	return filepath.Join(append([]string{v.root}, elem...)...)
}

// WriteNote writes a markdown note at the vault-relative path, creating
// parent directories as needed. Existing files are overwritten.
func (v *Vault) WriteNote(relPath string, content string) (string, error) {
	path := v.Path(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create note directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write note %q: %w", relPath, err)
	}
	v.logger.Debug("wrote note", "path", relPath)
	return path, nil
}

// NoteExists reports whether a note exists at the vault-relative path.
func (v *Vault) NoteExists(relPath string) bool {
	info, err := os.Stat(v.Path(relPath))
	return err == nil && !info.IsDir()
}

// Frontmatter renders a value as a YAML frontmatter block, delimited by
// "---" lines and followed by a blank line.
func Frontmatter(value any) (string, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	return "---\n" + string(data) + "---\n\n", nil
}

// Slug converts a title into a filename-safe slug: alphanumerics and
// dashes, spaces collapsed to single dashes, truncated to maxLen.
func Slug(title string, maxLen int) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_':
			b.WriteRune(' ')
		}
	}
	slug := strings.Join(strings.Fields(b.String()), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = slug[:maxLen]
	}
	return slug
}
