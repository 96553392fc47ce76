// Package opennebula talks XML-RPC to oned, the platform's management daemon.
//
// Every oned call takes a session string ("user:token") as its first argument
// and answers with an array whose first element says whether the call
// succeeded. Client hides that envelope: it returns the result on success and
// an *Error carrying oned's message and code otherwise.
package opennebula

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/metrics"
)

// Caller issues oned calls. *Client implements it; tests substitute fakes.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) (any, error)
}

// Session builds the credential string oned expects as first argument.
func Session(user, token string) string {
	return user + ":" + token
}

// Client is an XML-RPC client bound to one oned endpoint.
type Client struct {
	endpoint  string
	http      *http.Client
	transport *http.Transport
	logger    *zap.Logger
}

// NewClient creates a client for endpoint. timeout bounds connection setup
// and the wait for response headers.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	if _, err := http.NewRequest(http.MethodPost, endpoint, nil); err != nil {
		return nil, fmt.Errorf("failed to create xml-rpc client for %s: %w", endpoint, err)
	}

	return &Client{
		endpoint:  endpoint,
		http:      &http.Client{Transport: transport},
		transport: transport,
		logger:    logger.With(zap.String("endpoint", endpoint)),
	}, nil
}

// Endpoint returns the oned URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call invokes method with args and unwraps oned's response envelope.
// method may be given with or without the "one." prefix. Cancelling ctx aborts
// the HTTP request to oned.
func (c *Client) Call(ctx context.Context, method string, args ...any) (any, error) {
	if !strings.HasPrefix(method, "one.") {
		method = "one." + method
	}

	start := time.Now()
	result, err := c.roundTrip(ctx, method, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		metrics.RPCCallsTotal.WithLabelValues(method, "transport").Inc()
		c.logger.Warn("xml-rpc call failed", zap.String("method", method), zap.Error(err))
		return nil, &TransportError{Endpoint: c.endpoint, Method: method, Err: err}
	}
	metrics.RPCCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	value, err := unwrap(method, result)
	if err != nil {
		metrics.RPCCallsTotal.WithLabelValues(method, "error").Inc()
		c.logger.Debug("oned rejected call", zap.String("method", method), zap.Error(err))
		return nil, err
	}

	metrics.RPCCallsTotal.WithLabelValues(method, "ok").Inc()
	return value, nil
}

func (c *Client) roundTrip(ctx context.Context, method string, args []any) ([]any, error) {
	req, err := xmlrpc.NewRequest(c.endpoint, method, args)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("bad status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	reply := xmlrpc.Response(body)
	if err := reply.Err(); err != nil {
		return nil, err
	}
	var result []any
	if err := reply.Unmarshal(&result); err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func unwrap(method string, response []any) (any, error) {
	if len(response) < 2 {
		return nil, fmt.Errorf("%w: %s returned %d values", ErrMalformedResponse, method, len(response))
	}

	success, ok := response[0].(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s success flag is %T", ErrMalformedResponse, method, response[0])
	}
	if success {
		return response[1], nil
	}

	oneErr := &Error{Method: method, Code: CodeInternal, Message: fmt.Sprint(response[1])}
	if len(response) > 2 {
		if code, ok := toInt(response[2]); ok {
			oneErr.Code = code
		}
	}
	return nil, oneErr
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	default:
		return 0, false
	}
}

// Pool hands out one Client per endpoint, creating them on first use.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewPool returns an empty pool whose clients use timeout.
func NewPool(timeout time.Duration, logger *zap.Logger) *Pool {
	return &Pool{
		clients: make(map[string]*Client),
		timeout: timeout,
		logger:  logger,
	}
}

// Get returns the client for endpoint.
func (p *Pool) Get(endpoint string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[endpoint]; ok {
		return c, nil
	}
	c, err := NewClient(endpoint, p.timeout, p.logger)
	if err != nil {
		return nil, err
	}
	p.clients[endpoint] = c
	return c, nil
}

// Close closes every client.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for endpoint, c := range p.clients {
		_ = c.Close()
		delete(p.clients, endpoint)
	}
	return nil
}

// Caller returns the client for endpoint as a Caller.
func (p *Pool) Caller(endpoint string) (Caller, error) {
	return p.Get(endpoint)
}
