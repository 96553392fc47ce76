// Package oneflow proxies service and service template calls to the OneFlow
// server, which speaks JSON over HTTP with basic authentication.
package oneflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/metrics"
	"evalgo.org/fireedge/internal/version"
)

// Credentials authenticate a OneFlow request as an oned user.
type Credentials struct {
	User  string
	Token string
}

// Action is the body of a perform request.
type Action struct {
	Perform string         `json:"perform" validate:"required"`
	Params  map[string]any `json:"params,omitempty"`
}

// Error is a non-2xx answer from OneFlow.
type Error struct {
	Operation string
	Status    int
	Body      json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("oneflow %s: status %d: %s", e.Operation, e.Status, string(e.Body))
}

// Message extracts the error text OneFlow puts in its body, if any.
func (e *Error) Message() string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	if len(e.Body) > 0 {
		return string(e.Body)
	}
	return http.StatusText(e.Status)
}

// Client is a OneFlow client.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New creates a client for the OneFlow server at baseURL.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", version.UserAgent())

	return &Client{
		http:   c,
		logger: logger.With(zap.String(logging.FieldComponent, "oneflow")),
	}
}

// ListServices returns the service pool.
func (c *Client) ListServices(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, "list_services", http.MethodGet, "/service", nil)
}

// GetService returns one service.
func (c *Client) GetService(ctx context.Context, creds Credentials, id int) (json.RawMessage, error) {
	return c.do(ctx, creds, "get_service", http.MethodGet, "/service/"+strconv.Itoa(id), nil)
}

// ServiceAction performs an action (shutdown, recover, chown, ...) on a service.
func (c *Client) ServiceAction(ctx context.Context, creds Credentials, id int, action Action) (json.RawMessage, error) {
	return c.do(ctx, creds, "service_action", http.MethodPost, "/service/"+strconv.Itoa(id)+"/action",
		map[string]any{"action": action})
}

// DeleteService removes a service.
func (c *Client) DeleteService(ctx context.Context, creds Credentials, id int) (json.RawMessage, error) {
	return c.do(ctx, creds, "delete_service", http.MethodDelete, "/service/"+strconv.Itoa(id), nil)
}

// ListTemplates returns the service template pool.
func (c *Client) ListTemplates(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.do(ctx, creds, "list_templates", http.MethodGet, "/service_template", nil)
}

// GetTemplate returns one service template.
func (c *Client) GetTemplate(ctx context.Context, creds Credentials, id int) (json.RawMessage, error) {
	return c.do(ctx, creds, "get_template", http.MethodGet, "/service_template/"+strconv.Itoa(id), nil)
}

// TemplateAction performs an action (instantiate, clone, ...) on a template.
func (c *Client) TemplateAction(ctx context.Context, creds Credentials, id int, action Action) (json.RawMessage, error) {
	return c.do(ctx, creds, "template_action", http.MethodPost, "/service_template/"+strconv.Itoa(id)+"/action",
		map[string]any{"action": action})
}

func (c *Client) do(ctx context.Context, creds Credentials, operation, method, path string, body any) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetBasicAuth(creds.User, creds.Token)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		metrics.OneFlowRequestsTotal.WithLabelValues(operation, "error").Inc()
		c.logger.Warn("oneflow request failed", zap.String("operation", operation), zap.Error(err))
		return nil, fmt.Errorf("oneflow %s: %w", operation, err)
	}

	metrics.OneFlowRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode())).Inc()

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &Error{Operation: operation, Status: resp.StatusCode(), Body: rawOrNull(resp.Body())}
	}
	return rawOrNull(resp.Body()), nil
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		if len(b) == 0 {
			return json.RawMessage("null")
		}
		quoted, _ := json.Marshal(string(b))
		return quoted
	}
	return json.RawMessage(b)
}
