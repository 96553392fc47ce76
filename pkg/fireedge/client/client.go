// Package client is a Go client for the FireEdge REST gateway.
//
// Commands are addressed by their oned name ("vm.info") and a flat map of
// parameter values; the client builds the HTTP request from the command
// catalog the same way the gateway parses it.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"evalgo.org/fireedge/internal/command"
	"evalgo.org/fireedge/internal/version"
)

// Client talks to a FireEdge server.
type Client struct {
	http    *resty.Client
	catalog *command.Catalog
	zone    string

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithToken uses an already issued JWT.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithZone sends every command to the given zone.
func WithZone(zone string) Option {
	return func(c *Client) { c.zone = zone }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", version.UserAgent()),
		catalog: command.DefaultCatalog(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ErrUnknownCommand is returned by Do for a name the client has no route for.
var ErrUnknownCommand = command.ErrUnknownCommand

// Token returns the JWT the client authenticates with.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Error is a non-2xx answer from the gateway.
type Error struct {
	Status  int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("fireedge: %d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("fireedge: %d %s", e.Status, e.Message)
}

// envelope is the gateway's success body.
type envelope struct {
	ID      int             `json:"id"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// User identifies the authenticated OpenNebula user.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Session is the result of Login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Login authenticates with OpenNebula credentials and keeps the returned JWT
// for later calls. expire is the requested lifetime in seconds, 0 for the
// server default.
func (c *Client) Login(ctx context.Context, user, password string, expire int) (*Session, error) {
	body := map[string]any{"user": user, "token": password}
	if expire > 0 {
		body["expire"] = expire
	}
	if c.zone != "" {
		body["zone"] = c.zone
	}

	var s Session
	if err := c.send(ctx, http.MethodPost, "/api/auth", nil, body, &s); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = s.Token
	c.mu.Unlock()
	return &s, nil
}

// Do runs the named command with data keyed by parameter name and returns
// the decoded oned result.
func (c *Client) Do(ctx context.Context, name string, data map[string]any) (json.RawMessage, error) {
	cmd, err := c.catalog.Lookup(name)
	if err != nil {
		return nil, err
	}

	rc := cmd.RequestConfig(data)
	query := rc.Query()
	if c.zone != "" {
		query.Set("zone", c.zone)
	}

	var body any
	if rc.Body != nil {
		body = rc.Body
	}

	var out json.RawMessage
	if err := c.send(ctx, rc.Method, "/api"+rc.URL, query, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Version returns the gateway and oned versions.
func (c *Client) Version(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.send(ctx, http.MethodGet, "/api/version", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Param is one parameter of a published command.
type Param struct {
	Name     string `json:"name"`
	From     string `json:"from"`
	Type     string `json:"type"`
	Default  any    `json:"default,omitempty"`
	Required bool   `json:"required,omitempty"`
	Items    string `json:"items,omitempty"`
}

// CommandInfo is a command as published by the server.
type CommandInfo struct {
	Name   string  `json:"name"`
	Method string  `json:"http_method"`
	Params []Param `json:"params"`
	Path   string  `json:"path"`
}

// Commands returns the server's command catalog.
func (c *Client) Commands(ctx context.Context) ([]CommandInfo, error) {
	var out []CommandInfo
	if err := c.send(ctx, http.MethodGet, "/api/commands", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, method, path string, query map[string][]string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("fireedge %s %s: %w", method, path, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		apiErr := &Error{Status: resp.StatusCode()}
		if jsonErr := json.Unmarshal(resp.Body(), apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("fireedge %s %s: invalid response: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = env.Data
		return nil
	}
	return json.Unmarshal(env.Data, out)
}
