// Package mirror is the HTTP client of the external task service that local
// tasks are mirrored to.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

var ErrNoBaseURL = errors.New("mirror: base url is required")

// StatusError is a non-2xx response from the remote service.
type StatusError struct {
	Code   int
	Method string
	Path   string
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("mirror: %s %s: status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) StatusCode() int { return e.Code }

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

func New(baseURL, token string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("mirror: parse base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: u, token: token, http: httpClient}, nil
}

// Create posts a task and returns its remote id.
func (c *Client) Create(ctx context.Context, payload json.RawMessage) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("mirror: create response has no id")
	}
	return out.ID, nil
}

func (c *Client) Update(ctx context.Context, externalID string, payload json.RawMessage) error {
	return c.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(externalID), payload, nil)
}

func (c *Client) Complete(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(externalID)+"/close", nil, nil)
}

func (c *Client) Delete(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(externalID), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body json.RawMessage, out any) error {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return fmt.Errorf("mirror: build request: %w", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mirror: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Method: method, Path: path, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mirror: decode response: %w", err)
	}
	return nil
}
