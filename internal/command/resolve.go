package command

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Resolve is the gateway side of RequestConfig. It collects the ordered
// XML-RPC arguments for the command from the remaining path segments, the
// query string and the decoded JSON body. Missing values take the parameter
// default; a required parameter with neither is ErrMissingParam.
func (c Command) Resolve(path []string, query url.Values, body map[string]any) ([]any, error) {
	bodyless := c.Method == http.MethodGet || c.Method == http.MethodDelete

	resources := 0
	for _, p := range c.Params {
		if p.From == FromResource {
			resources++
		}
	}
	if len(path) > resources {
		return nil, fmt.Errorf("%w: unexpected path segment %q", ErrInvalidParam, path[resources])
	}

	args := make([]any, 0, len(c.Params))
	next := 0
	for _, p := range c.Params {
		var (
			raw   any
			found bool
		)
		switch p.From {
		case FromResource:
			if next < len(path) && path[next] != "" {
				raw, found = path[next], true
			}
			next++
		case FromQuery:
			raw, found = queryValue(query, p)
		case FromPostBody:
			raw, found = body[p.Name]
			if found && raw == nil {
				found = false
			}
			if !found && bodyless {
				raw, found = queryValue(query, p)
			}
		}

		if !found {
			if p.Default != nil {
				args = append(args, p.Default)
				continue
			}
			if p.Required {
				return nil, fmt.Errorf("%w: %s", ErrMissingParam, p.Name)
			}
			args = append(args, zeroValue(p.Type))
			continue
		}

		v, err := coerceParam(p, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidParam, p.Name, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func coerceParam(p Param, raw any) (any, error) {
	if p.Type != TypeArray || p.Items == "" {
		return Coerce(p.Type, raw)
	}
	items, err := toArray(raw)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := Coerce(p.Items, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func queryValue(query url.Values, p Param) (any, bool) {
	values, ok := query[p.Name]
	if !ok || len(values) == 0 {
		return nil, false
	}
	if p.Type == TypeArray && len(values) > 1 {
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, true
	}
	return values[0], true
}

func zeroValue(t ParamType) any {
	switch t {
	case TypeInteger:
		return 0
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	case TypeObject:
		return map[string]any{}
	default:
		return ""
	}
}

// Coerce converts a value decoded from a path, query string or JSON body to
// the representation oned expects for t.
func Coerce(t ParamType, v any) (any, error) {
	switch t {
	case TypeInteger:
		return toInt(v)
	case TypeBoolean:
		return toBool(v)
	case TypeArray:
		return toArray(v)
	case TypeObject:
		return toObject(v)
	case TypeXML:
		return toTemplate(v)
	default:
		return toString(v), nil
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(b))
	case float64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case int64:
		return b != 0, nil
	case json.Number:
		f, err := b.Float64()
		return f != 0, err
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func toArray(v any) ([]any, error) {
	switch a := v.(type) {
	case []any:
		out := make([]any, len(a))
		for i, item := range a {
			out[i] = normalizeNumber(item)
		}
		return out, nil
	case []string:
		out := make([]any, len(a))
		for i, s := range a {
			out[i] = s
		}
		return out, nil
	case string:
		s := strings.TrimSpace(a)
		if strings.HasPrefix(s, "[") {
			var out []any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, err
			}
			return out, nil
		}
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to array", v)
	}
}

// normalizeNumber turns a json.Number into an int when it is integral and a
// float64 otherwise, so it is sent as <int> or <double> instead of <string>.
func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func toObject(v any) (map[string]any, error) {
	switch o := v.(type) {
	case map[string]any:
		return o, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(o), &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to object", v)
	}
}

func toTemplate(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case map[string]any:
		return Template(t), nil
	default:
		return "", fmt.Errorf("cannot convert %T to template", v)
	}
}

// Template renders a JSON object as oned template text. Nested objects become
// vector attributes and arrays of objects repeat the vector, e.g.
//
//	{"NAME":"vm","DISK":[{"IMAGE_ID":"1"},{"IMAGE_ID":"2"}]}
//
// renders as
//
//	DISK=[
//	  IMAGE_ID="1" ]
//	DISK=[
//	  IMAGE_ID="2" ]
//	NAME="vm"
//
// Keys are emitted in sorted order.
func Template(obj map[string]any) string {
	var b strings.Builder
	for _, k := range sortedKeys(obj) {
		writeAttribute(&b, k, obj[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeAttribute(b *strings.Builder, key string, v any) {
	switch val := v.(type) {
	case map[string]any:
		writeVector(b, key, val)
	case []any:
		for _, item := range val {
			writeAttribute(b, key, item)
		}
	case nil:
		fmt.Fprintf(b, "%s=\"\"\n", key)
	default:
		fmt.Fprintf(b, "%s=\"%s\"\n", key, escape(toString(val)))
	}
}

func writeVector(b *strings.Builder, key string, obj map[string]any) {
	keys := sortedKeys(obj)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("  %s=\"%s\"", k, escape(toString(obj[k]))))
	}
	fmt.Fprintf(b, "%s=[\n%s ]\n", key, strings.Join(parts, ",\n"))
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
