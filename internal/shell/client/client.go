// Package client is the HTTP client for the caraveld daemon API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/caravel/internal/api"
)

// Client talks to one caraveld daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the daemon at baseURL, e.g. "http://localhost:7757".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			// Per-request budget for the round trip. Long waits (health
			// polling) happen by repeated calls, not long requests.
			Timeout: 30 * time.Second,
		},
	}
}

// Deploy sends one service or group member definition for deployment.
func (c *Client) Deploy(ctx context.Context, def api.ModuleDefinition, force bool) (*api.DeployResponse, error) {
	cmd := api.DeployCommand{
		ToDeploy:          []string{def.Name},
		ModuleDefinitions: []api.ModuleDefinition{def},
		Force:             force,
	}
	var resp api.DeployResponse
	if err := c.postJSON(ctx, "/deploy", cmd, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeployTask runs a one-shot task to completion on the daemon.
func (c *Client) DeployTask(ctx context.Context, def api.ModuleDefinition) (*api.TaskDeployResponse, error) {
	cmd := api.TaskDeployCommand{TaskDefinition: def}
	var resp api.TaskDeployResponse
	if err := c.postJSON(ctx, "/tasks/deploy", cmd, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopModule asks the daemon to stop a running module.
func (c *Client) StopModule(ctx context.Context, name string) (*api.OperationResponse, error) {
	return c.operation(ctx, api.OperationStop, name)
}

// RestartModule asks the daemon to restart a module.
func (c *Client) RestartModule(ctx context.Context, name string) (*api.OperationResponse, error) {
	return c.operation(ctx, api.OperationRestart, name)
}

func (c *Client) operation(ctx context.Context, op api.Operation, name string) (*api.OperationResponse, error) {
	cmd := api.OperationCommand{Operation: op, ModuleName: name}
	var resp api.OperationResponse
	if err := c.postJSON(ctx, "/operation", cmd, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListModules returns the daemon's view of all known modules.
func (c *Client) ListModules(ctx context.Context) (*api.StatusResponse, error) {
	var resp api.StatusResponse
	if err := c.getJSON(ctx, "/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogInfo returns where the daemon writes a module's log.
func (c *Client) LogInfo(ctx context.Context, name string) (*api.LogResponse, error) {
	var resp api.LogResponse
	if err := c.getJSON(ctx, "/log/"+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns the daemon's recent deployment events, newest first.
func (c *Client) History(ctx context.Context, limit int) (*api.HistoryResponse, error) {
	path := "/history"
	if limit > 0 {
		path += "?limit=" + fmt.Sprint(limit)
	}
	var resp api.HistoryResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PollHealth fetches the current healthcheck verdict for a monitor handle.
func (c *Client) PollHealth(ctx context.Context, handle string) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.getJSON(ctx, "/health/"+url.PathEscape(handle), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// Transport Helpers
// =============================================================================

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Error envelopes arrive with non-2xx statuses as well; DecodeInto
	// handles both shapes regardless of status code.
	return api.DecodeInto(body, out)
}
