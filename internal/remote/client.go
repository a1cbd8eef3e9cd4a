// Package remote implements the HTTP client for the script service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("script service error (status %d): %s", e.StatusCode, e.Message)
}

// Organization is the subset of the service's org object the client needs.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateScriptRequest is the POST /api/v2/scripts request body.
type CreateScriptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OrgID       string `json:"orgID"`
	Script      string `json:"script"`
	Language    string `json:"language"`
}

// UpdateScriptRequest is the PATCH /api/v2/scripts/{id} request body.
type UpdateScriptRequest struct {
	Script      string `json:"script"`
	Description string `json:"description,omitempty"`
}

// Client talks to the remote script service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL authenticating with
// the given API token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{},
	}
}

// do issues a request with auth headers and decodes the JSON response into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var raw []byte
	if err := c.doRaw(ctx, method, path, body, &raw); err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// doRaw issues a request with auth headers and hands back the raw response
// bytes. The invoke endpoint uses it directly, since its response is the
// script's own output rather than a service object.
func (c *Client) doRaw(ctx context.Context, method, path string, body any, raw *[]byte) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	*raw = respBody
	return nil
}

// errorMessage extracts the service's error message, falling back to the raw
// body when it is not the usual {code, message} JSON shape.
func errorMessage(body []byte) string {
	var svcErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &svcErr); err == nil && svcErr.Message != "" {
		return svcErr.Message
	}
	return strings.TrimSpace(string(body))
}

// ListOrganizations returns the organizations visible to the token, filtered
// by exact name when nameFilter is non-empty.
func (c *Client) ListOrganizations(ctx context.Context, nameFilter string) ([]Organization, error) {
	path := "/api/v2/orgs"
	if nameFilter != "" {
		path += "?org=" + url.QueryEscape(nameFilter)
	}

	var out struct {
		Orgs []Organization `json:"orgs"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orgs, nil
}
