// Package extractmeetings reconciles ingested meeting transcripts with
// machine-owned meeting records: every transcript note under
// _ingest/fireflies/ gets exactly one record under
// _scratch/auto/meetings/. The reconciliation is idempotent and keeps
// no workflow state; the record files themselves are the state.
package extractmeetings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/vault"
)

// ingestDir is the vault-relative directory transcripts are read from.
var ingestDir = filepath.Join("_ingest", "fireflies")

// recordsDir is the vault-relative directory meeting records land in.
var recordsDir = filepath.Join("_scratch", "auto", "meetings")

// Workflow creates missing meeting records for ingested transcripts.
type Workflow struct {
	vault  *vault.Vault
	logger log.Logger
}

// Options configures the meeting extractor workflow.
type Options struct {
	// Vault is the note vault holding transcripts and records. Required.
	Vault *vault.Vault

	// Logger defaults to a null logger.
	Logger log.Logger
}

// New creates the meeting extractor workflow.
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
	return "extract_meetings"
}

func (w *Workflow) Description() string {
	return "Creates meeting records for ingested transcripts"
}

// Run scans the ingest directory and writes a record for every
// transcript that has none yet. Existing records are never rewritten.
// One broken transcript never aborts the scan; dry run reports the
// would-be records without writing.
func (w *Workflow) Run(ctx context.Context, run *cadence.RunContext, state cadence.State) (cadence.State, error) {
	transcripts, err := w.listTranscripts()
	if err != nil {
		return nil, err
	}
	w.logger.Info("found transcripts", "count", len(transcripts))

	existing, created, failed := 0, 0, 0
	for _, name := range transcripts {
		meetingID, err := deriveMeetingID(name)
		if err != nil {
			w.logger.Error("failed to derive meeting id", "transcript", name, "error", err)
			failed++
			continue
		}

		relPath := filepath.Join(recordsDir, meetingID+".md")
		if w.vault.NoteExists(relPath) {
			existing++
			continue
		}
		if run.DryRun() {
			w.logger.Info("dry run: would create meeting record", "path", relPath)
			continue
		}
		if err := w.writeRecord(meetingID, name); err != nil {
			w.logger.Error("failed to write meeting record", "meeting_id", meetingID, "error", err)
			failed++
			continue
		}
		w.logger.Info("created meeting record", "meeting_id", meetingID)
		created++
	}

	w.logger.Info("meeting reconciliation complete",
		"scanned", len(transcripts),
		"existing", existing,
		"created", created,
		"errors", failed,
	)
	return state.Copy(), nil
}

// listTranscripts returns the markdown filenames in the ingest
// directory, sorted. A missing directory yields an empty scan.
func (w *Workflow) listTranscripts() ([]string, error) {
	entries, err := os.ReadDir(w.vault.Path(ingestDir))
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Warn("ingest directory does not exist", "path", ingestDir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan ingest directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

var (
	unsafeIDChars   = regexp.MustCompile(`[^\w\-.]`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)

// deriveMeetingID converts a transcript filename into a deterministic,
// filesystem-safe record identifier. Transcript filenames are stable,
// so the same transcript always maps to the same record.
func deriveMeetingID(filename string) (string, error) {
	stem := strings.TrimSuffix(filename, ".md")
	id := strings.ToLower(stem)
	id = strings.ReplaceAll(id, " ", "-")
	id = unsafeIDChars.ReplaceAllString(id, "-")
	id = repeatedHyphens.ReplaceAllString(id, "-")
	id = strings.Trim(id, "-")
	if id == "" {
		return "", fmt.Errorf("cannot derive meeting id from %q", filename)
	}
	return id, nil
}
