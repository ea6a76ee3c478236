// Package github implements remote.Client on the GitHub REST contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/julianstephens/daylog/internal/constants"
	"github.com/julianstephens/daylog/internal/logger"
	"github.com/julianstephens/daylog/internal/remote"
)

// Client stores documents as files in a GitHub repository. The revision is
// the file's blob sha.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	owner   string
	repo    string
	branch  string

	maxRetries uint64
	retryDelay time.Duration
}

var _ remote.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. GitHub
// Enterprise or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBranch targets a branch other than the repository default.
func WithBranch(branch string) Option {
	return func(c *Client) { c.branch = branch }
}

// WithRetry sets how often and how quickly transient failures are retried.
func WithRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = initialDelay
	}
}

// New returns a client for owner/repo authenticated with token.
func New(token, owner, repo string, opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		baseURL:    constants.DefaultGitHubAPI,
		token:      token,
		owner:      owner,
		repo:       repo,
		maxRetries: constants.RemoteMaxRetries,
		retryDelay: constants.RemoteRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contentResponse struct {
	Type     string `json:"type"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type repoResponse struct {
	FullName    string `json:"full_name"`
	Permissions struct {
		Push bool `json:"push"`
	} `json:"permissions"`
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) repoURL() string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo))
}

func (c *Client) contentsURL(path string, withRef bool) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	u := c.repoURL() + "/contents/" + strings.Join(segments, "/")
	if withRef && c.branch != "" {
		u += "?ref=" + url.QueryEscape(c.branch)
	}
	return u
}

// Read fetches path. A 404 is reported as a nil document.
func (c *Client) Read(ctx context.Context, path string) (*remote.Document, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.contentsURL(path, true), nil, "")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode contents response for %s: %w", path, err)
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, resp.Type)
	}

	var content []byte
	switch {
	case resp.Encoding == "base64":
		content, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case resp.Size > 0:
		// Files over 1 MB come back without inline content.
		status, content, err = c.do(ctx, http.MethodGet, c.contentsURL(path, true), nil, "application/vnd.github.raw")
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, nil
		}
	}
	return &remote.Document{Content: content, Revision: resp.SHA}, nil
}

// Write creates or updates path. GitHub answers a stale or missing sha
// with 409 or 422, which map to remote.ErrConflict.
func (c *Client) Write(ctx context.Context, path string, content []byte, revision, message string) (string, error) {
	req := writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     revision,
		Branch:  c.branch,
	}
	status, body, err := c.do(ctx, http.MethodPut, c.contentsURL(path, false), req, "")
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		// The file was deleted under a revision we still hold.
		return "", fmt.Errorf("%w: %s no longer exists", remote.ErrConflict, path)
	}
	var resp writeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode write response for %s: %w", path, err)
	}
	return resp.Content.SHA, nil
}

// Delete removes path. Deleting a missing file succeeds.
func (c *Client) Delete(ctx context.Context, path, revision, message string) error {
	req := writeRequest{Message: message, SHA: revision, Branch: c.branch}
	_, _, err := c.do(ctx, http.MethodDelete, c.contentsURL(path, false), req, "")
	return err
}

// ValidateAccess checks the repository exists and the token can push.
func (c *Client) ValidateAccess(ctx context.Context) error {
	status, body, err := c.do(ctx, http.MethodGet, c.repoURL(), nil, "")
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", remote.ErrNotFound, c.owner, c.repo)
	}
	var repo repoResponse
	if err := json.Unmarshal(body, &repo); err != nil {
		return fmt.Errorf("failed to decode repository response: %w", err)
	}
	if !repo.Permissions.Push {
		return fmt.Errorf("%w: %s/%s", remote.ErrPermission, c.owner, c.repo)
	}
	return nil
}

// do sends one API request, retrying transient failures. A 404 is returned
// as a status with no error; every other non-2xx status becomes a
// categorized *remote.StatusError.
func (c *Client) do(ctx context.Context, method, u string, payload interface{}, accept string) (int, []byte, error) {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var (
		status int
		body   []byte
	)
	op := func() error {
		var err error
		status, body, err = c.send(ctx, method, u, reqBody, accept)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !remote.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		logger.Debug("Retrying GitHub request", "method", method, "url", u, "error", err)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return 0, nil, err
	}
	return status, body, nil
}

func (c *Client) send(ctx context.Context, method, u string, reqBody []byte, accept string) (int, []byte, error) {
	var rd io.Reader
	if reqBody != nil {
		rd = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if accept == "" {
		accept = "application/vnd.github+json"
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", constants.AppName+"/"+constants.Version)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("%w: %v", remote.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response: %v", remote.ErrTransient, err)
	}

	if resp.StatusCode < 300 || resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, body, nil
	}
	return resp.StatusCode, body, classify(resp, body)
}

// classify maps a failed response onto the remote error taxonomy.
func classify(resp *http.Response, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message

	var kind error
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		kind = remote.ErrAuth
	case code == http.StatusForbidden:
		if isRateLimited(resp, msg) {
			kind = remote.ErrTransient
		} else {
			kind = remote.ErrPermission
		}
	case code == http.StatusConflict || code == http.StatusUnprocessableEntity:
		kind = remote.ErrConflict
	case code == http.StatusTooManyRequests || code >= 500:
		kind = remote.ErrTransient
	default:
		return fmt.Errorf("unexpected GitHub response (status %d): %s", code, msg)
	}
	return &remote.StatusError{Kind: kind, Status: resp.StatusCode, Message: msg}
}

func isRateLimited(resp *http.Response, msg string) bool {
	if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "" {
		return true
	}
	return strings.Contains(strings.ToLower(msg), "rate limit")
}
