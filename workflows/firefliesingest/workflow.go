// Package firefliesingest ingests new meeting transcripts from the
// Fireflies API into the vault. Deduplication is cursor-based: the
// workflow state tracks the processed transcript IDs and the end time
// of the latest ingested meeting.
package firefliesingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/deepnoodle-ai/cadence"
	"github.com/deepnoodle-ai/cadence/fireflies"
	"github.com/deepnoodle-ai/cadence/log"
	"github.com/deepnoodle-ai/cadence/vault"
)

// State keys.
const (
	keyProcessedIDs = "processed_ids"
	keyLastEndedAt  = "last_meeting_ended_at"
)

// Client is the subset of the Fireflies API the workflow depends on.
type Client interface {
	ListTranscripts(ctx context.Context, since *time.Time) ([]fireflies.TranscriptMeta, error)
	GetTranscript(ctx context.Context, id string) (*fireflies.Transcript, error)
}

// Workflow ingests meeting transcripts into the vault.
type Workflow struct {
	client Client
	vault  *vault.Vault
	logger log.Logger
}

// Options configures the Fireflies ingest workflow.
type Options struct {
	// Client calls the Fireflies API. Required.
	Client Client

	// Vault is the target note vault. Required.
	Vault *vault.Vault

	// Logger defaults to a null logger.
	Logger log.Logger
}

// New creates the Fireflies ingest workflow.
func New(opts Options) (*Workflow, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("fireflies client required")
	}
	if opts.Vault == nil {
		return nil, fmt.Errorf("vault required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Workflow{
		client: opts.Client,
		vault:  opts.Vault,
		logger: logger,
	}, nil
}

func (w *Workflow) Name() string {
	return "fireflies_ingest"
}

func (w *Workflow) Description() string {
	return "Ingests new Fireflies meeting transcripts into the vault"
}

// Run lists meetings after the stored cursor, fetches transcripts for
// the ones not yet processed, writes notes for the ready ones, and
// advances the cursor. Transcripts still being processed upstream are
// skipped and retried on the next run. Dry run performs every read but
// no writes and returns the state unchanged.
func (w *Workflow) Run(ctx context.Context, run *cadence.RunContext, state cadence.State) (cadence.State, error) {
	processedIDs := state.GetStringSlice(keyProcessedIDs)
	cursorRaw := state.GetString(keyLastEndedAt)

	var since *time.Time
	if cursorRaw != "" {
		parsed, err := time.Parse(time.RFC3339, cursorRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q in state: %w", cursorRaw, err)
		}
		since = &parsed
		w.logger.Info("using cursor", "since", cursorRaw)
	} else {
		w.logger.Info("first run, no cursor found")
	}

	metas, err := w.client.ListTranscripts(ctx, since)
	if err != nil {
		return nil, err
	}
	w.logger.Info("fetched meetings", "count", len(metas))

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].EndedAt().Before(metas[j].EndedAt())
	})

	processed := map[string]bool{}
	for _, id := range processedIDs {
		processed[id] = true
	}

	var written []*fireflies.Transcript
	skipped, notReady := 0, 0
	for _, meta := range metas {
		if processed[meta.ID] {
			skipped++
			continue
		}
		transcript, err := w.client.GetTranscript(ctx, meta.ID)
		if err != nil {
			return nil, err
		}
		if transcript == nil {
			w.logger.Info("transcript not ready, skipping", "meeting_id", meta.ID)
			notReady++
			continue
		}

		if run.DryRun() {
			w.logger.Info("dry run: would write meeting note",
				"meeting_id", transcript.ID,
				"path", noteRelPath(transcript),
			)
			continue
		}
		path, err := w.writeMeeting(transcript)
		if err != nil {
			return nil, err
		}
		if _, err := w.vault.CreateNotification(vault.NotificationOptions{
			Title:      noteTitle(transcript),
			Type:       "meeting_transcript",
			SourcePath: path,
		}); err != nil {
			return nil, err
		}
		written = append(written, transcript)
	}

	w.logger.Info("fireflies ingest complete",
		"written", len(written),
		"already_processed", skipped,
		"not_ready", notReady,
	)

	if run.DryRun() {
		return state.Copy(), nil
	}

	newState := state.Copy()
	ids := append([]string{}, processedIDs...)
	cursor := cursorRaw
	for _, transcript := range written {
		ids = append(ids, transcript.ID)
		endedAt := transcript.EndedAt().Format(time.RFC3339)
		if cursor == "" || endedAt > cursor {
			cursor = endedAt
		}
	}
	newState[keyProcessedIDs] = ids
	if cursor != "" {
		newState[keyLastEndedAt] = cursor
	}
	return newState, nil
}
