package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// AcceptHeader is sent on every API request.
	AcceptHeader = "application/vnd.github.v3+json"

	// listPageSize is the page size used for paginated repository
	// listings.
	listPageSize = 100
)

// TokenSource supplies the bearer credential attached to each request.
// Implementations may rotate the credential between calls.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource holding a fixed credential.
type StaticToken string

// Token returns the fixed credential.
func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", fmt.Errorf("token cannot be empty")
	}
	return string(t), nil
}

// Client is a minimal hosting-API client scoped to one organization.
type Client struct {
	httpClient *http.Client
	baseURL    string
	org        string
	tokens     TokenSource
}

// NewClient creates a hosting-API client. baseURL is the API root
// (e.g. "https://api.github.com"), org the organization all repositories
// live in. A zero timeout disables the client-side request timeout.
func NewClient(baseURL, org string, tokens TokenSource, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if org == "" {
		return nil, fmt.Errorf("organization cannot be empty")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		org:        org,
		tokens:     tokens,
	}, nil
}

// Organization returns the organization the client is scoped to.
func (c *Client) Organization() string { return c.org }

// StatusError reports a non-success API status. The response body is
// carried verbatim; credentials never appear in it.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API status %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// doRequest performs one authenticated request. Statuses outside the
// 2xx/3xx range are returned as a StatusError.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain credential: %w", err)
	}
	req.Header.Set("Accept", AcceptHeader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp, nil
}

// decodeInto decodes the response body into v and closes it.
func decodeInto(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Repository is the hosting-side view of one repository.
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
}

// FileContent is a content-at-ref response. Content is base64 when
// Encoding says so. URL is the self-referential locator whose trailing
// "?ref=<hash>" carries the concrete resolved revision.
type FileContent struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	URL      string `json:"url"`
}

// RefFromURL extracts the "ref" query parameter from the content's self
// locator. It returns an empty string when the locator has none.
func (f *FileContent) RefFromURL() string {
	u, err := url.Parse(f.URL)
	if err != nil {
		return ""
	}
	return u.Query().Get("ref")
}

// Commit is one entry of a commit-list response.
type Commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message   string `json:"message"`
		Committer struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// TreeEntry stages one blob for tree creation. Content is inline; the
// hosting side stores it as a blob object.
type TreeEntry struct {
	Path    string `json:"path"`
	Mode    string `json:"mode"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ListRepositories pages through every repository of the organization.
func (c *Client) ListRepositories(ctx context.Context) ([]Repository, error) {
	var all []Repository
	for page := 1; ; page++ {
		path := fmt.Sprintf("/orgs/%s/repos?per_page=%d&page=%d", c.org, listPageSize, page)
		resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		var repos []Repository
		if err := decodeInto(resp, &repos); err != nil {
			return nil, err
		}
		all = append(all, repos...)
		if len(repos) < listPageSize {
			return all, nil
		}
	}
}

// CreateRepository creates a private repository in the organization
// without an initial commit.
func (c *Client) CreateRepository(ctx context.Context, name string) (*Repository, error) {
	body := map[string]any{
		"name":      name,
		"private":   true,
		"auto_init": false,
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/orgs/"+c.org+"/repos", body)
	if err != nil {
		return nil, err
	}
	var repo Repository
	if err := decodeInto(resp, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetContents reads one file at the given ref.
func (c *Client) GetContents(ctx context.Context, repo, path, ref string) (*FileContent, error) {
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s", c.org, repo, path)
	if ref != "" {
		apiPath += "?ref=" + url.QueryEscape(ref)
	}
	resp, err := c.doRequest(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		return nil, err
	}
	var content FileContent
	if err := decodeInto(resp, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// ListCommits reads one page of the branch's commit list, newest first.
func (c *Client) ListCommits(ctx context.Context, repo, branch string, limit int) ([]Commit, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits?sha=%s&per_page=%s",
		c.org, repo, url.QueryEscape(branch), strconv.Itoa(limit))
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var commits []Commit
	if err := decodeInto(resp, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// CreateTree creates a tree object from the staged entries and returns
// its hash.
func (c *Client) CreateTree(ctx context.Context, repo string, entries []TreeEntry) (string, error) {
	body := map[string]any{"tree": entries}
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/trees", c.org, repo), body)
	if err != nil {
		return "", err
	}
	var out struct {
		SHA string `json:"sha"`
	}
	if err := decodeInto(resp, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

// CommitIdentity names the author/committer of a created commit.
type CommitIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateCommit creates a commit object referencing the tree. Parents may
// be empty for a repository's first commit.
func (c *Client) CreateCommit(ctx context.Context, repo, message, treeSHA string, parents []string, identity CommitIdentity) (string, error) {
	body := map[string]any{
		"message":   message,
		"tree":      treeSHA,
		"parents":   parents,
		"author":    identity,
		"committer": identity,
	}
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/repos/%s/%s/git/commits", c.org, repo), body)
	if err != nil {
		return "", err
	}
	var out struct {
		SHA string `json:"sha"`
	}
	if err := decodeInto(resp, &out); err != nil {
		return "", err
	}
	return out.SHA, nil
}

// UpdateRef force-updates the branch reference to the given commit,
// creating the reference when the repository has none yet.
func (c *Client) UpdateRef(ctx context.Context, repo, branch, sha string) error {
	path := fmt.Sprintf("/repos/%s/%s/git/refs/heads/%s", c.org, repo, url.PathEscape(branch))
	resp, err := c.doRequest(ctx, http.MethodPatch, path, map[string]any{
		"sha":   sha,
		"force": true,
	})
	if err == nil {
		resp.Body.Close()
		return nil
	}

	// A fresh repository has no reference to update yet.
	if IsStatus(err, http.StatusNotFound) || IsStatus(err, http.StatusUnprocessableEntity) {
		createPath := fmt.Sprintf("/repos/%s/%s/git/refs", c.org, repo)
		resp, err := c.doRequest(ctx, http.MethodPost, createPath, map[string]any{
			"ref": "refs/heads/" + branch,
			"sha": sha,
		})
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}

	return err
}

// Ping probes API reachability for the configured organization.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/orgs/"+c.org, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
