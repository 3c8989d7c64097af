package broker

import (
	"sync"
)

type memorySessionStore struct {
	lock     sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore keeps sessions in process memory. Sessions are lost
// on restart, which is acceptable for this short, single-use flow.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		sessions: make(map[string]*Session),
	}
}

func (s *memorySessionStore) GetSession(id string) (*Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	clone := *session
	return &clone, nil
}

func (s *memorySessionStore) SaveSession(session *Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *memorySessionStore) DeleteSession(id string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.sessions, id)
	return nil
}
