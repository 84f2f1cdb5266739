package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Client is a typed facade over the GitHub REST API for installation-scoped
// operations. Authorization material comes from the TokenSource; a call
// failing with 401 triggers exactly one credential refresh and one retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       interfaces.TokenSource
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a new GitHub API client
func NewClient(auth interfaces.TokenSource, opts ...Option) *Client {
	client := &Client{
		baseURL:    "https://api.github.com",
		httpClient: http.DefaultClient,
		auth:       auth,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ListTags returns repository tags in platform order.
func (c *Client) ListTags(ctx context.Context, installation types.InstallationID, owner, repo string) ([]model.Tag, error) {
	var tags []struct {
		Name   string `json:"name"`
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	path := fmt.Sprintf("/repos/%s/%s/tags", owner, repo)
	if err := c.do(ctx, installation, http.MethodGet, path, nil, &tags); err != nil {
		return nil, err
	}

	result := make([]model.Tag, 0, len(tags))
	for _, tag := range tags {
		result = append(result, model.Tag{Name: tag.Name, SHA: tag.Commit.SHA})
	}
	return result, nil
}

// CreateRelease creates a release for the tag name.
func (c *Client) CreateRelease(ctx context.Context, installation types.InstallationID, owner, repo, tag string, draft bool) error {
	body := map[string]any{
		"tag_name": tag,
		"draft":    draft,
	}
	path := fmt.Sprintf("/repos/%s/%s/releases", owner, repo)
	return c.do(ctx, installation, http.MethodPost, path, body, nil)
}

// CreateIssueComment posts a comment on an issue.
func (c *Client) CreateIssueComment(ctx context.Context, installation types.InstallationID, owner, repo string, number int, body string) error {
	payload := map[string]any{
		"body": body,
	}
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	return c.do(ctx, installation, http.MethodPost, path, payload, nil)
}

// ListReleases returns all releases of the repository.
func (c *Client) ListReleases(ctx context.Context, installation types.InstallationID, owner, repo string) ([]model.Release, error) {
	var releases []struct {
		ID      int64  `json:"id"`
		TagName string `json:"tag_name"`
		Draft   bool   `json:"draft"`
	}
	path := fmt.Sprintf("/repos/%s/%s/releases", owner, repo)
	if err := c.do(ctx, installation, http.MethodGet, path, nil, &releases); err != nil {
		return nil, err
	}

	result := make([]model.Release, 0, len(releases))
	for _, release := range releases {
		result = append(result, model.Release{ID: release.ID, TagName: release.TagName, Draft: release.Draft})
	}
	return result, nil
}

// DeleteRelease deletes a release by ID.
func (c *Client) DeleteRelease(ctx context.Context, installation types.InstallationID, owner, repo string, releaseID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/releases/%d", owner, repo, releaseID)
	return c.do(ctx, installation, http.MethodDelete, path, nil, nil)
}

// DeleteTag deletes a tag reference.
func (c *Client) DeleteTag(ctx context.Context, installation types.InstallationID, owner, repo, tag string) error {
	path := fmt.Sprintf("/repos/%s/%s/git/refs/tags/%s", owner, repo, tag)
	return c.do(ctx, installation, http.MethodDelete, path, nil, nil)
}

// BranchesWhereHead returns the branches whose head commit is the given SHA.
func (c *Client) BranchesWhereHead(ctx context.Context, installation types.InstallationID, owner, repo, sha string) ([]string, error) {
	var branches []struct {
		Name string `json:"name"`
	}
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/branches-where-head", owner, repo, sha)
	if err := c.do(ctx, installation, http.MethodGet, path, nil, &branches); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(branches))
	for _, branch := range branches {
		names = append(names, branch.Name)
	}
	return names, nil
}

// do performs one API call with a bounded retry: a 401 on an
// installation-scoped call refreshes credentials and retries exactly once.
// A second failure is final.
func (c *Client) do(ctx context.Context, installation types.InstallationID, method, path string, reqBody, out any) error {
	logger := ctxlog.From(ctx)

	var payload []byte
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return goerr.Wrap(err, "failed to marshal request body", goerr.V("path", path))
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return goerr.Wrap(err, "failed to create request", goerr.V("path", path))
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("Authorization", c.auth.AuthHeader(installation))
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return goerr.Wrap(err, "request failed", goerr.V("method", method), goerr.V("path", path))
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		if err != nil {
			return goerr.Wrap(err, "failed to read response body", goerr.V("path", path))
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if out != nil {
				if err := json.Unmarshal(respBody, out); err != nil {
					return goerr.Wrap(err, "failed to decode response", goerr.V("path", path))
				}
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized && installation != 0 && attempt == 0:
			logger.Warn("Authorization failed, refreshing credentials",
				"installation_id", installation,
				"method", method,
				"path", path,
			)
			if err := c.auth.Refresh(ctx, installation); err != nil {
				return goerr.Wrap(err, "failed to refresh credentials", goerr.V("path", path))
			}

		default:
			return goerr.New("unexpected response from GitHub API",
				goerr.V("method", method),
				goerr.V("path", path),
				goerr.V("status", resp.StatusCode),
				goerr.V("body", string(respBody)),
			)
		}
	}
}
