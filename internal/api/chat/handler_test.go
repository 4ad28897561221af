package chat

import (
	"testing"
	"time"
)

func resetRegistry() {
	sessionsMu.Lock()
	sessions = map[string]*sessionEntry{}
	sessionsMu.Unlock()
}

func TestSessionRegistry_StablePerID(t *testing.T) {
	resetRegistry()
	now := time.Now()

	a := sessionForAt("alice", now)
	b := sessionForAt("bob", now)
	if a == b {
		t.Fatalf("distinct ids must not share a transcript")
	}
	if again := sessionForAt("alice", now.Add(time.Minute)); again != a {
		t.Fatalf("same id must keep its transcript")
	}
}

func TestSessionRegistry_EvictsIdleEntries(t *testing.T) {
	resetRegistry()
	now := time.Now()

	stale := sessionForAt("stale", now)
	stale.Record("q", "a")

	// a later lookup on another id sweeps entries past the idle TTL
	sessionForAt("fresh", now.Add(sessionIdleTTL+time.Minute))

	sessionsMu.Lock()
	_, ok := sessions["stale"]
	sessionsMu.Unlock()
	if ok {
		t.Fatalf("idle session survived past the TTL")
	}

	if revived := sessionForAt("stale", now.Add(sessionIdleTTL+2*time.Minute)); revived.Len() != 0 {
		t.Fatalf("evicted session came back with its old transcript")
	}
}

func TestSessionRegistry_ActiveEntrySurvivesSweep(t *testing.T) {
	resetRegistry()
	now := time.Now()

	active := sessionForAt("active", now)
	active.Record("q", "a")

	// touched again inside the TTL, then a sweep well past the first touch
	sessionForAt("active", now.Add(sessionIdleTTL-time.Minute))
	sessionForAt("other", now.Add(sessionIdleTTL+time.Minute))

	if got := sessionForAt("active", now.Add(sessionIdleTTL+time.Minute)); got.Len() != 1 {
		t.Fatalf("recently used session was evicted")
	}
}

func TestDropSession(t *testing.T) {
	resetRegistry()
	now := time.Now()

	sessionForAt("gone", now).Record("q", "a")
	dropSession("gone")

	if s := sessionForAt("gone", now); s.Len() != 0 {
		t.Fatalf("dropped session kept its transcript")
	}
}
