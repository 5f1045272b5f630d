package session

import (
	"sync"
	"time"
)

// Entry is one line analyzed during a session.
type Entry struct {
	Text       string    `json:"text"`
	Sentiment  string    `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

type sessionLog struct {
	entries  []Entry
	lastSeen time.Time
}

// History keeps an ordered list of entries per session. A session only
// ever sees its own list. Sessions idle for longer than the ttl are
// dropped on the next Append or List.
type History struct {
	mu         sync.Mutex
	sessions   map[string]*sessionLog
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// NewHistory creates a history that keeps at most maxEntries per
// session, dropping the oldest first. Zero means unbounded. A zero ttl
// keeps sessions until they are cleared.
func NewHistory(maxEntries int, ttl time.Duration) *History {
	return &History{
		sessions:   make(map[string]*sessionLog),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Append adds entries to the end of a session's list.
func (h *History) Append(sessionID string, entries ...Entry) {
	if sessionID == "" || len(entries) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.evict(now)

	sl, ok := h.sessions[sessionID]
	if !ok {
		sl = &sessionLog{}
		h.sessions[sessionID] = sl
	}
	sl.lastSeen = now

	list := append(sl.entries, entries...)
	if h.maxEntries > 0 && len(list) > h.maxEntries {
		list = append([]Entry(nil), list[len(list)-h.maxEntries:]...)
	}
	sl.entries = list
}

// List returns a copy of a session's entries, oldest first.
func (h *History) List(sessionID string) []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	h.evict(now)

	sl, ok := h.sessions[sessionID]
	if !ok {
		return []Entry{}
	}
	sl.lastSeen = now
	return append([]Entry{}, sl.entries...)
}

// Clear forgets a session's entries.
func (h *History) Clear(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, sessionID)
}

// Len reports how many sessions are currently tracked.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.sessions)
}

// evict drops sessions idle for longer than the ttl. Callers hold mu.
func (h *History) evict(now time.Time) {
	if h.ttl <= 0 {
		return
	}
	for id, sl := range h.sessions {
		if now.Sub(sl.lastSeen) > h.ttl {
			delete(h.sessions, id)
		}
	}
}
