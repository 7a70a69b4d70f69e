package session

import (
	"context"
	"errors"
	"sync"

	"board-sync/board"
)

// Manager keeps one Session per user.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// ErrManagerClosed is returned by Get after CloseAll.
var ErrManagerClosed = errors.New("session manager closed")

func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, sessions: map[string]*Session{}}
}

// Get returns the user's session, creating and starting it on first use. A
// failed initial fetch is kept in the store's error field; the session is
// still returned.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	s, ok := m.sessions[userID]
	if !ok {
		s = New(userID, m.cfg)
		m.sessions[userID] = s
	}
	m.mu.Unlock()

	_ = s.Start(ctx)
	return s, nil
}

// Close ends the user's session, if any.
func (m *Manager) Close(ctx context.Context, userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// CloseAll ends every session and refuses new ones.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	held := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var errs []error
	for _, s := range held {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Board returns the store of the user's session.
func (m *Manager) Board(ctx context.Context, userID string) (*board.Store, error) {
	s, err := m.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Store, nil
}
