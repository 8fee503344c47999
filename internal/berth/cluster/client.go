// Package cluster is the gateway to the external cluster controller API.
// Every internal action that touches the orchestrator goes through this
// client, which normalizes the controller's `{"error": msg}` convention
// into typed errors so no caller ever inspects ad-hoc response keys.
package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// readTimeout bounds GET calls; the controller answers these from
	// memory.
	readTimeout = 5 * time.Second

	// mutateTimeout bounds deploys, removals and other state changes.
	mutateTimeout = 10 * time.Second
)

// Error is a failure reported by the controller or encountered reaching it.
// The message is surfaced to the caller as-is; this client never retries.
type Error struct {
	Op      string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cluster %s: %s", e.Op, e.Message)
}

// Client talks to the cluster controller API at a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger,
	}
}

// call performs a JSON request and returns the raw response body. Network
// failures, non-JSON bodies and bodies carrying an "error" key all come back
// as *Error.
func (c *Client) call(ctx context.Context, op, method, path string, body any, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Message: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("cluster api unreachable", "op", op, "err", err)
		return nil, &Error{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Message: err.Error()}
	}

	if msg := errorMessage(raw); msg != "" {
		return nil, &Error{Op: op, Message: msg}
	}
	if resp.StatusCode >= 400 {
		return nil, &Error{Op: op, Message: resp.Status}
	}
	if !json.Valid(raw) {
		return nil, &Error{Op: op, Message: "malformed response from controller"}
	}

	return raw, nil
}

// errorMessage extracts the controller's error convention: a JSON object
// whose "error" key is non-empty signals failure regardless of HTTP status.
func errorMessage(raw []byte) string {
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Error
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	raw, err := c.call(ctx, op, http.MethodGet, path, nil, readTimeout)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Message: "malformed response from controller"}
	}
	return nil
}

// Stats returns the cluster resource summary.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "stats", http.MethodGet, "/stats", nil, readTimeout)
}

// Containers lists all container-like objects known to the controller.
func (c *Client) Containers(ctx context.Context) ([]Container, error) {
	var containers []Container
	if err := c.get(ctx, "containers", "/containers", &containers); err != nil {
		return nil, err
	}
	return containers, nil
}

// Templates lists the deployable templates.
func (c *Client) Templates(ctx context.Context) ([]string, error) {
	// The controller wraps the template list in a single-element array:
	// [{"templates": [...]}].
	var wrapper []struct {
		Templates []string `json:"templates"`
	}
	if err := c.get(ctx, "templates", "/templates-list", &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper) == 0 {
		return nil, nil
	}
	return wrapper[0].Templates, nil
}

// Deploy asks the controller to bring up a stack from a template.
func (c *Client) Deploy(ctx context.Context, template string, req DeployRequest) (DeployResult, error) {
	raw, err := c.call(ctx, "deploy", http.MethodPost, "/deploy/"+url.PathEscape(template), req, mutateTimeout)
	if err != nil {
		return DeployResult{}, err
	}
	var result DeployResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return DeployResult{}, &Error{Op: "deploy", Message: "malformed response from controller"}
	}
	return result, nil
}

// ManageService starts, stops or restarts a single service.
func (c *Client) ManageService(ctx context.Context, serviceID, action string) (json.RawMessage, error) {
	body := map[string]string{"action": action}
	return c.call(ctx, "manage", http.MethodPost,
		"/manage/service/"+url.PathEscape(serviceID), body, mutateTimeout)
}

// RemoveStack tears down a whole stack.
func (c *Client) RemoveStack(ctx context.Context, stackName string) error {
	_, err := c.call(ctx, "remove", http.MethodDelete,
		"/stack/remove/"+url.PathEscape(stackName), nil, mutateTimeout)
	return err
}

// SystemIP returns the addresses root domains should point at.
func (c *Client) SystemIP(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "system-ip", http.MethodGet, "/system/ip", nil, readTimeout)
}

// Prune reclaims unused cluster resources.
func (c *Client) Prune(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "prune", http.MethodPost, "/system/prune", nil, mutateTimeout)
}

// Logs fetches recent log lines for one service of a stack.
func (c *Client) Logs(ctx context.Context, stack, service string) (string, error) {
	var result struct {
		Logs string `json:"logs"`
	}
	path := "/logs/" + url.PathEscape(stack) + "/" + url.PathEscape(service)
	if err := c.get(ctx, "logs", path, &result); err != nil {
		return "", err
	}
	return result.Logs, nil
}
