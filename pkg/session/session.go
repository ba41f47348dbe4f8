package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/moneyboard/moneyboard/internal/event_bus"
	"github.com/moneyboard/moneyboard/pkg/boundary"
	"github.com/moneyboard/moneyboard/pkg/finance"
	log "github.com/sirupsen/logrus"
)

// Session holds the entity registry and load boundaries of one user. It is
// created on the first request of the user and lives until Close.
type Session struct {
	Id       uuid.UUID
	Owner    string
	Registry *finance.Registry

	mu         sync.RWMutex
	token      string
	boundaries map[finance.Kind]*boundary.Boundary
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Boundary returns the boundary of kind, creating it with load on first use.
// Later calls ignore load.
func (s *Session) Boundary(kind finance.Kind, load boundary.LoadFunc) *boundary.Boundary {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boundaries[kind]
	if !ok {
		b = boundary.New(string(kind), load)
		s.boundaries[kind] = b
	}
	return b
}

// ExistingBoundary returns the boundary of kind if one was created.
func (s *Session) ExistingBoundary(kind finance.Kind) (*boundary.Boundary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boundaries[kind]
	return b, ok
}

// Hydrator fills a fresh registry before the session is handed out.
type Hydrator interface {
	Hydrate(ctx context.Context, registry *finance.Registry) error
}

type Manager struct {
	bus      *event_bus.EventBus
	hydrator Hydrator

	mu       sync.Mutex
	sessions map[string]*entry
}

// entry is a session that may still be hydrating; ready is closed once it is
// usable.
type entry struct {
	session *Session
	ready   chan struct{}
}

func (e *entry) isReady() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// NewManager creates a session manager. bus and hydrator may be nil.
func NewManager(bus *event_bus.EventBus, hydrator Hydrator) *Manager {
	return &Manager{
		bus:      bus,
		hydrator: hydrator,
		sessions: make(map[string]*entry),
	}
}

// Open returns the session of owner, creating and hydrating it on first use.
// The token of an existing session is replaced when token is not empty.
// Hydration of one owner does not hold up other owners; concurrent opens of
// the same owner wait for it.
func (m *Manager) Open(ctx context.Context, owner, token string) (*Session, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}

	m.mu.Lock()
	if e, ok := m.sessions[owner]; ok {
		m.mu.Unlock()
		if token != "" {
			e.session.setToken(token)
		}
		select {
		case <-e.ready:
			return e.session, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s := &Session{
		Id:         uuid.New(),
		Owner:      owner,
		Registry:   finance.NewRegistry(owner, m.bus),
		token:      token,
		boundaries: make(map[finance.Kind]*boundary.Boundary),
	}
	e := &entry{session: s, ready: make(chan struct{})}
	m.sessions[owner] = e
	m.mu.Unlock()

	defer close(e.ready)
	if m.hydrator != nil {
		if err := m.hydrator.Hydrate(ctx, s.Registry); err != nil {
			// A cold start is still a working session.
			log.Warnf("failed to hydrate session of %s: %v", owner, err)
		}
	}
	log.Debugf("session %s opened for %s", s.Id, owner)
	return s, nil
}

// Get returns the session of owner once it is hydrated.
func (m *Manager) Get(owner string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[owner]
	if !ok || !e.isReady() {
		return nil, false
	}
	return e.session, true
}

// Close forgets the session of owner and stops publishing its changes. A later
// Open starts from scratch.
func (m *Manager) Close(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[owner]; ok {
		e.session.Registry.Close()
		log.Debugf("session %s closed for %s", e.session.Id, owner)
		delete(m.sessions, owner)
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
