package generation

import (
	"strings"
	"sync"
)

// ProgressStore keeps the log lines of each user's current operation. One
// sequence exists per user at a time: Begin discards the previous one, so
// the lines live exactly as long as the operation they belong to. Lines are
// appended raw in arrival order; empties and duplicates are kept here and
// filtered at display time.
type ProgressStore struct {
	mu   sync.Mutex
	logs map[uint][]string
	busy map[uint]bool
}

// NewProgressStore creates an empty progress store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		logs: make(map[uint][]string),
		busy: make(map[uint]bool),
	}
}

// Begin starts a fresh sequence for the user, discarding any prior one.
func (p *ProgressStore) Begin(userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs[userID] = nil
	p.busy[userID] = true
}

// Append adds one log line to the user's current sequence.
func (p *ProgressStore) Append(userID uint, line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs[userID] = append(p.logs[userID], line)
}

// End marks the user's operation as no longer in flight. The lines stay
// readable until the next Begin.
func (p *ProgressStore) End(userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy[userID] = false
}

// InFlight reports whether the user currently has an operation running.
func (p *ProgressStore) InFlight(userID uint) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy[userID]
}

// Lines returns a display-ready copy of the user's current sequence: blank
// lines and consecutive duplicates are dropped, everything else is kept in
// arrival order.
func (p *ProgressStore) Lines(userID uint) []string {
	p.mu.Lock()
	raw := make([]string, len(p.logs[userID]))
	copy(raw, p.logs[userID])
	p.mu.Unlock()

	out := make([]string, 0, len(raw))
	last := ""
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line == last {
			continue
		}
		out = append(out, line)
		last = line
	}
	return out
}

// Reset discards the user's sequence entirely.
func (p *ProgressStore) Reset(userID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.logs, userID)
	delete(p.busy, userID)
}
