// Package github is a thin wrapper over the GitHub REST API, covering
// only what the PR ingest workflow needs: searching open pull requests
// a user is involved in, fetching PR details, and assembling a review
// and comment timeline.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/deepnoodle-ai/cadence/log"
)

const defaultBaseURL = "https://api.github.com"

// User is a GitHub account.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	URL   string `json:"url"`
}

// PullRequest mirrors the fields of the REST pulls response the ingest
// workflow consumes.
type PullRequest struct {
	Number         int        `json:"number"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	State          string     `json:"state"`
	User           User       `json:"user"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	MergedAt       *time.Time `json:"merged_at"`
	HTMLURL        string     `json:"html_url"`
	ChangedFiles   int        `json:"changed_files"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	Commits        int        `json:"commits"`
	Comments       int        `json:"comments"`
	ReviewComments int        `json:"review_comments"`
}

// IssueRef is one result from the search API. Pull requests surface as
// issues there; only the HTML URL is needed to fetch full PR data.
type IssueRef struct {
	HTMLURL string `json:"html_url"`
	Title   string `json:"title"`
}

// TimelineEvent is one review, issue comment, or review comment on a
// pull request, normalized for rendering.
type TimelineEvent struct {
	Timestamp time.Time
	Actor     string
	Kind      string // "review", "comment", or "review_comment"
	Detail    string
}

// Client calls the GitHub REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     log.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Token authenticates requests. Required for private repositories
	// and to avoid aggressive rate limits.
	Token string

	// BaseURL overrides the API endpoint, primarily for tests.
	BaseURL string

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client

	// Logger defaults to a null logger.
	Logger log.Logger
}

// NewClient creates a GitHub API client.
func NewClient(opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      opts.Token,
		logger:     logger,
	}
}

var pullRequestURLPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/pull/(\d+)/?$`)

// ParsePullRequestURL extracts the owner, repository, and number from a
// pull request HTML URL.
func ParsePullRequestURL(prURL string) (owner, repo string, number int, err error) {
	match := pullRequestURLPattern.FindStringSubmatch(prURL)
	if match == nil {
		return "", "", 0, fmt.Errorf("invalid pull request URL: %q", prURL)
	}
	number, err = strconv.Atoi(match[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid pull request number in %q: %w", prURL, err)
	}
	return match[1], match[2], number, nil
}

// SearchInvolvedPullRequests returns the open pull requests the user is
// involved in (author, reviewer, assignee, or mentioned).
func (c *Client) SearchInvolvedPullRequests(ctx context.Context, username string) ([]IssueRef, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("is:pr is:open involves:%s", username))
	query.Set("per_page", "100")

	var result struct {
		Items []IssueRef `json:"items"`
	}
	path := "/search/issues?" + query.Encode()
	if err := c.get(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("failed to search pull requests for %q: %w", username, err)
	}
	return result.Items, nil
}

// GetPullRequest fetches full pull request details.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr PullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.get(ctx, path, &pr); err != nil {
		return nil, fmt.Errorf("failed to fetch PR %s/%s#%d: %w", owner, repo, number, err)
	}
	return &pr, nil
}

// Timeline assembles the reviews, issue comments, and review comments
// of a pull request into a single list sorted by time ascending.
func (c *Client) Timeline(ctx context.Context, owner, repo string, number int) ([]TimelineEvent, error) {
	var events []TimelineEvent

	var reviews []struct {
		User        User      `json:"user"`
		State       string    `json:"state"`
		SubmittedAt time.Time `json:"submitted_at"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	if err := c.get(ctx, path, &reviews); err != nil {
		return nil, fmt.Errorf("failed to fetch reviews for %s/%s#%d: %w", owner, repo, number, err)
	}
	for _, review := range reviews {
		events = append(events, TimelineEvent{
			Timestamp: review.SubmittedAt,
			Actor:     review.User.Login,
			Kind:      "review",
			Detail:    review.State,
		})
	}

	var comments []struct {
		User      User      `json:"user"`
		Body      string    `json:"body"`
		CreatedAt time.Time `json:"created_at"`
	}
	path = fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if err := c.get(ctx, path, &comments); err != nil {
		return nil, fmt.Errorf("failed to fetch comments for %s/%s#%d: %w", owner, repo, number, err)
	}
	for _, comment := range comments {
		events = append(events, TimelineEvent{
			Timestamp: comment.CreatedAt,
			Actor:     comment.User.Login,
			Kind:      "comment",
			Detail:    comment.Body,
		})
	}

	var reviewComments []struct {
		User      User      `json:"user"`
		Body      string    `json:"body"`
		CreatedAt time.Time `json:"created_at"`
	}
	path = fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, number)
	if err := c.get(ctx, path, &reviewComments); err != nil {
		return nil, fmt.Errorf("failed to fetch review comments for %s/%s#%d: %w", owner, repo, number, err)
	}
	for _, comment := range reviewComments {
		events = append(events, TimelineEvent{
			Timestamp: comment.CreatedAt,
			Actor:     comment.User.Login,
			Kind:      "review_comment",
			Detail:    comment.Body,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

// get performs an authenticated GET and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
