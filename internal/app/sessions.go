package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// DefaultSetupSessionTTL is how long an idle setup session survives.
const DefaultSetupSessionTTL = 30 * time.Minute

// SetupSessions keeps one Machine per in-progress setup flow. Creating a
// session is the "mount"; Discard and expiry are the "unmount".
type SetupSessions struct {
	newMachine func() *Machine
	ttl        time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*setupSession
}

type setupSession struct {
	machine  *Machine
	lastSeen time.Time
}

// NewSetupSessions creates a registry whose machines come from newMachine.
func NewSetupSessions(newMachine func() *Machine, ttl time.Duration) *SetupSessions {
	if ttl <= 0 {
		ttl = DefaultSetupSessionTTL
	}
	return &SetupSessions{
		newMachine: newMachine,
		ttl:        ttl,
		now:        time.Now,
		sessions:   make(map[string]*setupSession),
	}
}

// Open starts a new setup session and returns its ID and machine.
func (s *SetupSessions) Open() (string, *Machine, error) {
	id, err := generateID()
	if err != nil {
		return "", nil, fmt.Errorf("generating setup session id: %w", err)
	}

	m := s.newMachine()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[id] = &setupSession{machine: m, lastSeen: s.now()}

	return id, m, nil
}

// Get returns the machine of a live session and refreshes its TTL.
func (s *SetupSessions) Get(id string) (*Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSetupSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess.machine, nil
}

// Discard closes a session's machine and forgets it. Unknown IDs are ignored.
func (s *SetupSessions) Discard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.machine.Close()
		delete(s.sessions, id)
	}
}

// Len returns the number of live sessions.
func (s *SetupSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.sessions)
}

func (s *SetupSessions) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			sess.machine.Close()
			delete(s.sessions, id)
		}
	}
}
