// Package github is a minimal client for the repository contents API, enough
// to use a single file in a repository as a versioned document.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://api.github.com"

var (
	ErrNotFound = errors.New("github: file not found")
	ErrConflict = errors.New("github: sha does not match current file")
)

// APIError is a non-2xx response that is neither a not-found nor a conflict.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	owner      string
	repo       string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, owner, repo, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		owner:   owner,
		repo:    repo,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(c.owner), url.PathEscape(c.repo), strings.TrimLeft(path, "/"))
}

// GetContents fetches a file at the given ref (branch, tag or commit).
func (c *Client) GetContents(ctx context.Context, path, ref string) (*File, error) {
	u := c.contentsURL(path)
	if ref != "" {
		u += "?ref=" + url.QueryEscape(ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build contents request")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var f File
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, errors.Wrapf(err, "decode contents of %s", path)
	}
	return &f, nil
}

// PutContents creates or updates a file, committing it to put.Branch.
func (c *Client) PutContents(ctx context.Context, path string, put PutRequest) (*PutResponse, error) {
	body, err := json.Marshal(put)
	if err != nil {
		return nil, errors.Wrap(err, "marshal put request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build contents request")
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "put %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var pr PutResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, errors.Wrapf(err, "decode put response for %s", path)
	}
	return &pr, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	if body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		return errors.Wrap(ErrConflict, body.Message)
	case http.StatusUnprocessableEntity:
		// GitHub reports a missing sha on an existing file as 422.
		if strings.Contains(strings.ToLower(body.Message), "sha") {
			return errors.Wrap(ErrConflict, body.Message)
		}
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message}
}
