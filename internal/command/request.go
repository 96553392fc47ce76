package command

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestConfig is the HTTP request a client sends to run a command.
type RequestConfig struct {
	Method string         `json:"method"`
	URL    string         `json:"url"`
	Params map[string]any `json:"params,omitempty"`
	Body   map[string]any `json:"data,omitempty"`
}

// RequestConfig maps data onto the command's parameters.
//
// Resource params present in data become path segments in declaration order,
// query params become URL parameters and postBody params the JSON body. Keys
// matching no parameter are dropped. GET and DELETE requests carry no body, so
// their postBody params are sent in the query string instead.
func (c Command) RequestConfig(data map[string]any) RequestConfig {
	cfg := RequestConfig{
		Method: c.Method,
		Params: map[string]any{},
		Body:   map[string]any{},
	}

	segments := []string{c.Path()}
	bodyless := c.Method == http.MethodGet || c.Method == http.MethodDelete

	for _, p := range c.Params {
		v, ok := data[p.Name]
		if !ok || v == nil {
			continue
		}
		switch p.From {
		case FromResource:
			segments = append(segments, url.PathEscape(fmt.Sprint(v)))
		case FromQuery:
			cfg.Params[p.Name] = v
		case FromPostBody:
			if bodyless {
				cfg.Params[p.Name] = v
			} else {
				cfg.Body[p.Name] = v
			}
		}
	}

	cfg.URL = strings.Join(segments, "/")
	if len(cfg.Params) == 0 {
		cfg.Params = nil
	}
	if len(cfg.Body) == 0 {
		cfg.Body = nil
	}
	return cfg
}

// Query renders Params as URL values. Slices become repeated keys.
func (r RequestConfig) Query() url.Values {
	q := url.Values{}
	for k, v := range r.Params {
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				q.Add(k, fmt.Sprint(item))
			}
		case []string:
			for _, item := range vv {
				q.Add(k, item)
			}
		default:
			q.Set(k, fmt.Sprint(v))
		}
	}
	return q
}

// Target joins base, the /api prefix, URL and the encoded query.
func (r RequestConfig) Target(base string) string {
	target := strings.TrimRight(base, "/") + "/api" + r.URL
	if q := r.Query(); len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}
