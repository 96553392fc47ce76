package opennebula

import (
	"fmt"
	"strings"

	"github.com/clbanning/mxj/v2"
)

// DecodeResult turns a successful call result into a JSON-ready value.
// XML documents (pool and info responses) become nested maps keyed by element
// name with text content kept as strings; other results, such as the numeric
// id returned by allocate calls, pass through unchanged.
func DecodeResult(result any) (any, error) {
	s, ok := result.(string)
	if !ok {
		return result, nil
	}
	if !LooksLikeXML(s) {
		return s, nil
	}
	return XMLToMap([]byte(s))
}

// LooksLikeXML reports whether s starts with an XML element.
func LooksLikeXML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

// XMLToMap converts an XML document to a map.
func XMLToMap(data []byte) (map[string]any, error) {
	m, err := mxj.NewMapXml(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode xml: %w", err)
	}
	return map[string]any(m), nil
}
