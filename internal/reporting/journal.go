// Package reporting keeps a journal of resolved checkout sessions and
// produces retrospective summaries from it.
package reporting

import (
	"sync"
	"time"
)

// Outcome labels how a session ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeDismissed Outcome = "DISMISSED"
	OutcomeClosed    Outcome = "CLOSED" // host-initiated close
)

// Entry records one resolved session.
type Entry struct {
	Timestamp        time.Time
	SessionID        string
	Outcome          Outcome
	Amount           int64 // smallest currency unit
	Currency         string
	ErrorCode        string // set for FAILED outcomes
	ErrorDescription string
}

// Journal is an append-only in-memory record of resolved sessions.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Append records an entry.
func (j *Journal) Append(e Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

// Entries returns a copy of the journal.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}
