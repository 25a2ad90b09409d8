// Package session implements the per-user conversational state machine
// driving the catalog and conversion flows.
package session

import "sync"

// State enumerates the dialog phases. There is no terminal state; every
// completed or cancelled flow returns to StateIdle.
type State int

// Dialog states.
const (
	StateIdle State = iota
	StateSelectingOutputFormat
	StateSelectingDistricts
	StateAwaitingSpreadsheet
	StateAwaitingPdf
)

// Settings accumulates the in-progress crawl options for one user.
type Settings struct {
	Excel     bool
	Districts map[string]bool
}

func newSettings() Settings {
	return Settings{Districts: make(map[string]bool)}
}

// Session is the mutable conversational context of one chat identity.
// Events for the same identity are serialized on mu; distinct
// identities proceed independently.
type Session struct {
	mu       sync.Mutex
	State    State
	Settings Settings
}

func (s *Session) reset() {
	s.State = StateIdle
	s.Settings = newSettings()
}

// selectedCodes returns the currently toggled district codes in the
// fixed display order.
func (s *Session) selectedCodes(order []string) []string {
	var codes []string
	for _, code := range order {
		if s.Settings.Districts[code] {
			codes = append(codes, code)
		}
	}
	return codes
}

// Store maps chat identities to sessions. Sessions are created on
// first contact and never evicted; the user population is small.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the session for the given identity, creating it in the
// idle state on first contact. The second result reports creation.
func (s *Store) Get(chatID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		return sess, false
	}
	sess := &Session{Settings: newSettings()}
	s.sessions[chatID] = sess
	return sess, true
}
