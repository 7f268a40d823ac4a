// Package session holds the per-checkout identifiers and the host-level
// configuration repository. A Session covers exactly one open-to-terminal
// lifecycle of a checkout request.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Session identifies one opened checkout flow for logs, spans and the journal.
type Session struct {
	ID        string            // Globally unique ID for this checkout lifecycle
	TraceID   string            // Correlates logs and spans across components
	SpanID    string            // Current span identifier
	Baggage   map[string]string // Optional key-value flags (e.g., correlation data)
	StartedAt time.Time
}

// New creates a Session with fresh identifiers.
func New() Session {
	return Session{
		ID:        uuid.NewString(),
		TraceID:   uuid.NewString(),
		SpanID:    uuid.NewString(), // Initial span
		Baggage:   make(map[string]string),
		StartedAt: time.Now(),
	}
}

// NewSpan generates a new SpanID for a child operation within the same session.
func (s *Session) NewSpan() string {
	s.SpanID = uuid.NewString()
	return s.SpanID
}
