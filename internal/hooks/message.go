package hooks

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"evalgo.org/fireedge/internal/opennebula"
)

// ErrEmptyPayload is returned for messages without a body frame.
var ErrEmptyPayload = errors.New("hook message has no payload")

// Message is a raw hook message as published by oned.
type Message struct {
	Topic   string
	Payload []byte
}

// Event is what a WebSocket client receives.
type Event struct {
	Command string         `json:"command"`
	Data    map[string]any `json:"data"`
}

// Decode turns a raw hook message into an event.
func Decode(msg Message) (*Event, error) {
	raw := strings.TrimSpace(string(msg.Payload))
	if raw == "" {
		return nil, ErrEmptyPayload
	}

	xmlDoc, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload of %q: %w", msg.Topic, err)
	}

	data, err := opennebula.XMLToMap(xmlDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload of %q: %w", msg.Topic, err)
	}

	return &Event{Command: msg.Topic, Data: data}, nil
}

// Encode renders the event as a WebSocket text frame.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
