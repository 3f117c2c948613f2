package session

import "sync"

// Store maps user identity to that user's Session. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(userID int64) (*Session, bool)
	Replace(userID int64, s *Session)
	Remove(userID int64)
	Len() int
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*Session)}
}

func (m *MemoryStore) Get(userID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *MemoryStore) Replace(userID int64, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

func (m *MemoryStore) Remove(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetOrCreate returns the user's session, creating an idle one if absent.
func GetOrCreate(store Store, userID int64) *Session {
	if s, ok := store.Get(userID); ok {
		return s
	}
	s := New(userID)
	store.Replace(userID, s)
	return s
}
