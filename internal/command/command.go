// Package command describes the gateway's callable operations declaratively.
//
// A Command names an oned XML-RPC method (without the "one." prefix), the HTTP
// method the REST route answers to, and the ordered list of parameters the RPC
// expects after the session string. Every parameter says where its value comes
// from in an HTTP request: a path segment, the query string or the JSON body.
//
// The same descriptor drives both directions of the REST convention:
//
//	RequestConfig  command + data        -> method, URL, query, body   (clients)
//	Resolve        command + HTTP request -> ordered XML-RPC arguments  (gateway)
//
// so a client built from the catalog always produces requests the gateway can
// resolve back into the same RPC call.
package command

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Source tells where a parameter travels in an HTTP request.
type Source string

const (
	// FromResource params are path segments after /api/<resource>/<action>.
	FromResource Source = "resource"
	// FromQuery params are URL query parameters.
	FromQuery Source = "query"
	// FromPostBody params are fields of the JSON request body.
	FromPostBody Source = "postBody"
)

// ParamType is the XML-RPC type a parameter is coerced to.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	// TypeXML is a template string; objects are rendered as KEY="VALUE" lines.
	TypeXML ParamType = "xml"
)

var (
	// ErrUnknownCommand is returned when a name or route has no command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrDuplicateCommand is returned when registering a name twice.
	ErrDuplicateCommand = errors.New("duplicate command")
	// ErrMissingParam is returned when a required parameter has no value and no default.
	ErrMissingParam = errors.New("missing parameter")
	// ErrInvalidParam is returned when a value cannot be coerced to the parameter type.
	ErrInvalidParam = errors.New("invalid parameter")
)

// Param is one XML-RPC argument.
type Param struct {
	Name     string    `json:"name"`
	From     Source    `json:"from"`
	Type     ParamType `json:"type"`
	Default  any       `json:"default,omitempty"`
	Required bool      `json:"required,omitempty"`
	// Items is the element type of a TypeArray param. Unset leaves elements
	// as decoded, with JSON numbers turned into integers where exact.
	Items ParamType `json:"items,omitempty"`
}

// Command is a declarative descriptor of one gateway operation.
type Command struct {
	// Name is the dotted RPC name without the "one." prefix, e.g. "vm.info".
	Name   string  `json:"name"`
	Method string  `json:"http_method"`
	Params []Param `json:"params"`
}

// RPCMethod returns the oned method name, e.g. "one.vm.info".
func (c Command) RPCMethod() string {
	return "one." + c.Name
}

// Resource returns the first segment of the command name.
func (c Command) Resource() string {
	resource, _, _ := strings.Cut(c.Name, ".")
	return resource
}

// Action returns the remaining name segments joined with "/".
func (c Command) Action() string {
	_, action, _ := strings.Cut(c.Name, ".")
	return strings.ReplaceAll(action, ".", "/")
}

// Path returns the route path without resource params, e.g. "/vm/info".
func (c Command) Path() string {
	return "/" + strings.ReplaceAll(c.Name, ".", "/")
}

// Param returns the named parameter.
func (c Command) Param(name string) (Param, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (c Command) validate() error {
	if c.Name == "" || !strings.Contains(c.Name, ".") {
		return fmt.Errorf("command name %q must be <resource>.<action>", c.Name)
	}
	switch c.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("command %s: unsupported http method %q", c.Name, c.Method)
	}
	seen := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		if p.Name == "" {
			return fmt.Errorf("command %s: param without name", c.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("command %s: duplicate param %q", c.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.From {
		case FromResource, FromQuery, FromPostBody:
		default:
			return fmt.Errorf("command %s: param %s has unknown source %q", c.Name, p.Name, p.From)
		}
	}
	return nil
}
