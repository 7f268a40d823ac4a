package bridge

import (
	"encoding/json"
	"fmt"
)

// Widget message types. The bootstrap page tags every outbound message with
// exactly one of these.
const (
	MessageSuccess   = "SUCCESS"
	MessageFailed    = "FAILED"
	MessageDismissed = "DISMISSED"
	MessageReady     = "READY"
)

// Envelope is the wire form of a widget message: a type tag plus an optional
// payload whose shape depends on the type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// failureEnvelope matches the widget's payment.failed response, which nests
// the error object one level down.
type failureEnvelope struct {
	Error struct {
		Code        string `json:"code"`
		Source      string `json:"source"`
		Reason      string `json:"reason"`
		Step        string `json:"step"`
		Description string `json:"description"`
	} `json:"error"`
}

// DecodeEnvelope parses a raw widget message. Messages without a type tag are
// rejected.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("bridge: decode widget message: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("bridge: widget message missing type tag")
	}
	return env, nil
}
