package services

import "sync"

// sessionLocks serializes mutating operations per session. The store has no
// optimistic-concurrency token, so concurrent next-question/submit-answer
// calls on one session would race on the append/index logic; holding the
// session's mutex for the whole read-modify-write closes that window.
// Entries are never evicted; one idle mutex per session is cheap relative to
// the transcript itself.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[string]*sync.Mutex)}
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	m, ok := l.m[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.m[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
