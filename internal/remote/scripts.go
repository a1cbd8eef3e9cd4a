package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tklein/scriptpad/internal/script"
)

// CreateScript registers a new script with the service and returns the stored
// object, including its service-assigned id.
func (c *Client) CreateScript(ctx context.Context, req CreateScriptRequest) (*script.Script, error) {
	var out script.Script
	if err := c.do(ctx, http.MethodPost, "/api/v2/scripts", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateScript replaces the body (and optionally the description) of an
// existing script.
func (c *Client) UpdateScript(ctx context.Context, id string, req UpdateScriptRequest) (*script.Script, error) {
	if id == "" {
		return nil, fmt.Errorf("script id is required for update")
	}
	var out script.Script
	if err := c.do(ctx, http.MethodPatch, "/api/v2/scripts/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetScript fetches a single script by id.
func (c *Client) GetScript(ctx context.Context, id string) (*script.Script, error) {
	var out script.Script
	if err := c.do(ctx, http.MethodGet, "/api/v2/scripts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListScripts returns up to limit scripts (0 means the service default).
func (c *Client) ListScripts(ctx context.Context, limit int) ([]script.Script, error) {
	path := "/api/v2/scripts"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var out struct {
		Scripts []script.Script `json:"scripts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Scripts, nil
}

// DeleteScript removes a script from the service.
func (c *Client) DeleteScript(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v2/scripts/"+url.PathEscape(id), nil, nil)
}

// InvokeScript executes a script remotely and returns the raw response body.
// params may be nil.
func (c *Client) InvokeScript(ctx context.Context, id string, params map[string]any) (string, error) {
	body := map[string]any{}
	if params != nil {
		body["params"] = params
	}

	var raw []byte
	if err := c.doRaw(ctx, http.MethodPost, "/api/v2/scripts/"+url.PathEscape(id)+"/invoke", body, &raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
