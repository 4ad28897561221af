package rag

import (
	"fmt"
	"strings"
	"sync"
)

// Session holds the running transcript for one conversation. It is owned by
// the session that created it and must never be shared across sessions; the
// mutex only guards concurrent calls within the same session.
type Session struct {
	mu      sync.Mutex
	entries []exchange
}

type exchange struct {
	query  string
	answer string
}

func NewSession() *Session {
	return &Session{}
}

// Record appends a query/answer pair to the transcript.
func (s *Session) Record(query, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, exchange{query: query, answer: answer})
}

// Clear resets the transcript to empty.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Transcript renders the accumulated pairs as the flat history block injected
// into prompts. Empty string when nothing has been recorded.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return ""
	}
	var b strings.Builder
	for _, e := range s.entries {
		fmt.Fprintf(&b, "query: %s\nanswer: %s\n", e.query, e.answer)
	}
	return b.String()
}

// Len reports how many exchanges have been recorded.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
