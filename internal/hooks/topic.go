// Package hooks relays oned hook events from ZeroMQ to WebSocket clients.
//
// oned publishes every state change on a ZeroMQ PUB socket as a two frame
// message: the topic ("EVENT VM 5/ACTIVE/RUNNING" and the like) followed by
// the base64 encoded XML of the object. A browser asks for the events of one
// resource, optionally narrowed to one object id, and receives each event as
// a JSON text frame {"command": topic, "data": object}.
package hooks

import (
	"errors"
	"strings"
)

// ErrMissingResource is returned when no resource was requested.
var ErrMissingResource = errors.New("resource is required")

var hookObjects = map[string]string{
	"vm":          "VM",
	"host":        "HOST",
	"image":       "IMAGE",
	"vn":          "NET",
	"vnet":        "NET",
	"net":         "NET",
	"template":    "TEMPLATE",
	"vntemplate":  "VNTEMPLATE",
	"user":        "USER",
	"group":       "GROUP",
	"cluster":     "CLUSTER",
	"datastore":   "DATASTORE",
	"zone":        "ZONE",
	"secgroup":    "SECGROUP",
	"vrouter":     "VROUTER",
	"vmgroup":     "VMGROUP",
	"market":      "MARKETPLACE",
	"marketapp":   "MARKETPLACEAPP",
	"document":    "DOCUMENT",
	"service":     "DOCUMENT",
	"hook":        "HOOK",
	"acl":         "ACL",
	"marketplace": "MARKETPLACE",
}

// Object maps a gateway resource name to the object name used in hook topics.
// Unknown resources are upper-cased.
func Object(resource string) string {
	resource = strings.ToLower(strings.TrimSpace(resource))
	if obj, ok := hookObjects[resource]; ok {
		return obj
	}
	return strings.ToUpper(resource)
}

// Topic returns the ZeroMQ subscription prefix for a resource and optional id.
// With an id the prefix ends in "/" so that id 1 does not match 10.
func Topic(resource, id string) (string, error) {
	if strings.TrimSpace(resource) == "" {
		return "", ErrMissingResource
	}
	topic := "EVENT " + Object(resource)
	if id = strings.TrimSpace(id); id != "" {
		topic += " " + id + "/"
	}
	return topic, nil
}
