package memory

import (
	"context"
	"sync"
	"time"

	"qidscan/internal/capture/models"
	"qidscan/pkg/platform/sentinel"
)

// retention keeps expired sessions around long enough to answer 410 instead
// of 404.
const retention = time.Hour

// InMemoryStore keeps sessions in a map. Suitable for a single instance;
// sessions are lost on restart.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

func (s *InMemoryStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(session.CreatedAt)
	s.sessions[session.ID] = *session
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string, now time.Time) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	// Finished sessions stay readable after expiry so the desktop can
	// collect the result.
	if !session.IsTerminal() && session.IsExpired(now) {
		return nil, sentinel.ErrExpired
	}
	return &session, nil
}

func (s *InMemoryStore) Claim(_ context.Context, id string, now time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if session.Status != models.StatusPending {
		return nil, sentinel.ErrAlreadyUsed
	}
	if session.IsExpired(now) {
		return nil, sentinel.ErrExpired
	}
	session.Status = models.StatusProcessing
	s.sessions[id] = session
	return &session, nil
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *InMemoryStore) prune(now time.Time) {
	for id, session := range s.sessions {
		if now.Sub(session.ExpiresAt) > retention {
			delete(s.sessions, id)
		}
	}
}
