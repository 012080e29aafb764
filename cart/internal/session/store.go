// Package session keeps the open carts of every terminal in memory. A cart lives
// only as long as its sale: it is created when the cashier starts scanning and is
// dropped on checkout, on explicit delete or when it sits idle past the TTL.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/pos/cart/pkg/engine"
	inErrors "github.com/Alturino/pos/internal/errors"
	"github.com/Alturino/pos/internal/log"
)

type Session struct {
	mu          sync.Mutex
	cart        *engine.Cart
	lastUsed    atomic.Int64
	CreatedAt   time.Time
	TerminalID  string
	CountryCode string
	ID          uuid.UUID
	TenantID    uuid.UUID
}

// Do runs fn while holding the session lock. Operations on one cart are serialised;
// different carts never block each other.
func (s *Session) Do(fn func(cart *engine.Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(time.Now())
	return fn(s.cart)
}

func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: map[uuid.UUID]*Session{}, now: time.Now}
}

func (s *Store) Create(tenantID uuid.UUID, terminalID string, countryCode string) *Session {
	now := s.now()
	session := &Session{
		cart:        engine.New(),
		CreatedAt:   now.UTC(),
		TerminalID:  terminalID,
		CountryCode: countryCode,
		ID:          uuid.New(),
		TenantID:    tenantID,
	}
	session.touch(now)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns inErrors.ErrCartNotFound for unknown ids and for carts owned by
// another tenant.
func (s *Store) Get(tenantID uuid.UUID, id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || session.TenantID != tenantID {
		return nil, inErrors.ErrCartNotFound
	}
	return session, nil
}

func (s *Store) Delete(tenantID uuid.UUID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.TenantID != tenantID {
		return inErrors.ErrCartNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Sweep drops sessions idle for longer than ttl and returns how many were dropped.
func (s *Store) Sweep(ttl time.Duration) int {
	deadline := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	swept := 0
	for id, session := range s.sessions {
		if session.LastUsed().Before(deadline) {
			delete(s.sessions, id)
			swept++
		}
	}
	return swept
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper calls Sweep every interval until c is done. onSweep, when set,
// receives the number of sessions left after each sweep.
func (s *Store) RunSweeper(c context.Context, interval time.Duration, ttl time.Duration, onSweep func(remaining int)) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Store RunSweeper").
		Str(log.KeyProcess, "sweeping idle carts").
		Dur("ttl", ttl).
		Logger()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped sweeping idle carts")
			return
		case <-ticker.C:
			if swept := s.Sweep(ttl); swept > 0 {
				logger.Info().Int("swept", swept).Msg("swept idle carts")
			}
			if onSweep != nil {
				onSweep(s.Len())
			}
		}
	}
}
