// Package fireflies is a thin wrapper over the Fireflies GraphQL API,
// covering only what the transcript ingest workflow needs: listing
// recent meeting transcripts and fetching their sentences and summary.
package fireflies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deepnoodle-ai/cadence/log"
)

const defaultEndpoint = "https://api.fireflies.ai/graphql"

// listPageSize is the maximum page size the API allows.
const listPageSize = 50

// TranscriptMeta is the lightweight listing entry for one meeting.
type TranscriptMeta struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Date is a Unix timestamp in milliseconds.
	Date int64 `json:"date"`
}

// EndedAt returns the meeting end time in UTC.
func (m TranscriptMeta) EndedAt() time.Time {
	return time.UnixMilli(m.Date).UTC()
}

// Sentence is one transcript line.
type Sentence struct {
	Text        string  `json:"text"`
	StartTime   float64 `json:"start_time"`
	SpeakerName string  `json:"speaker_name"`
}

// Summary is the AI-generated meeting summary.
type Summary struct {
	Keywords    []string `json:"keywords"`
	ActionItems string   `json:"action_items"`
	Overview    string   `json:"overview"`
	Gist        string   `json:"gist"`
}

// Transcript is a full meeting transcript payload.
type Transcript struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Date      int64      `json:"date"`
	Sentences []Sentence `json:"sentences"`
	Summary   *Summary   `json:"summary"`
}

// EndedAt returns the meeting end time in UTC.
func (t *Transcript) EndedAt() time.Time {
	return time.UnixMilli(t.Date).UTC()
}

// Client calls the Fireflies GraphQL API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     log.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// APIKey authenticates requests. Required.
	APIKey string

	// Endpoint overrides the GraphQL endpoint, primarily for tests.
	Endpoint string

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client

	// Logger defaults to a null logger.
	Logger log.Logger
}

// NewClient creates a Fireflies API client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   endpoint,
		apiKey:     opts.APIKey,
		logger:     logger,
	}
}

const listTranscriptsQuery = `
query GetTranscripts($fromDate: DateTime, $limit: Int, $skip: Int) {
  transcripts(fromDate: $fromDate, limit: $limit, skip: $skip) {
    id
    title
    date
  }
}`

// ListTranscripts fetches meeting transcripts, paginating through all
// results. When since is non-nil, only meetings after that time are
// returned (filtered server-side).
func (c *Client) ListTranscripts(ctx context.Context, since *time.Time) ([]TranscriptMeta, error) {
	var all []TranscriptMeta
	skip := 0
	for {
		variables := map[string]any{
			"limit": listPageSize,
			"skip":  skip,
		}
		if since != nil {
			variables["fromDate"] = since.UTC().Format(time.RFC3339)
		}

		var result struct {
			Transcripts []TranscriptMeta `json:"transcripts"`
		}
		if err := c.query(ctx, listTranscriptsQuery, variables, &result); err != nil {
			return nil, fmt.Errorf("failed to list transcripts: %w", err)
		}
		if len(result.Transcripts) == 0 {
			break
		}
		all = append(all, result.Transcripts...)
		c.logger.Debug("fetched transcript batch", "count", len(result.Transcripts), "skip", skip)
		if len(result.Transcripts) < listPageSize {
			break
		}
		skip += listPageSize
	}
	return all, nil
}

const getTranscriptQuery = `
query GetTranscript($transcriptId: String!) {
  transcript(id: $transcriptId) {
    id
    title
    date
    sentences {
      text
      start_time
      speaker_name
    }
    summary {
      keywords
      action_items
      overview
      gist
    }
  }
}`

// GetTranscript fetches the full transcript for a meeting. Returns
// (nil, nil) when the transcript exists but has no sentences yet, which
// means processing has not finished.
func (c *Client) GetTranscript(ctx context.Context, id string) (*Transcript, error) {
	var result struct {
		Transcript *Transcript `json:"transcript"`
	}
	variables := map[string]any{"transcriptId": id}
	if err := c.query(ctx, getTranscriptQuery, variables, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch transcript %q: %w", id, err)
	}
	if result.Transcript == nil || len(result.Transcript.Sentences) == 0 {
		return nil, nil
	}
	return result.Transcript, nil
}

// query posts a GraphQL request and decodes the data payload into out.
// GraphQL-level errors are returned as Go errors.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	return json.Unmarshal(envelope.Data, out)
}
