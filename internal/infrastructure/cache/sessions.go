package cache

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/productstudio/backend/internal/domain"
	"github.com/productstudio/backend/internal/usecase"
	"go.uber.org/zap"
)

// SessionRegistry keeps one state machine per operator session.
// Sessions expire a fixed TTL after creation; an expired or deleted
// session's machine is closed.
type SessionRegistry struct {
	items   *gocache.Cache
	factory func() *usecase.Machine
	logger  *zap.Logger
}

// NewSessionRegistry creates a registry that purges expired sessions
// every cleanupInterval
func NewSessionRegistry(ttl, cleanupInterval time.Duration, factory func() *usecase.Machine, logger *zap.Logger) *SessionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &SessionRegistry{
		items:   gocache.New(ttl, cleanupInterval),
		factory: factory,
		logger:  logger.Named("sessions"),
	}
	r.items.OnEvicted(func(id string, v interface{}) {
		if m, ok := v.(*usecase.Machine); ok {
			m.Close()
		}
		r.logger.Debug("session closed", zap.String("session", id))
	})
	return r
}

// Create starts a new session in the Input state
func (r *SessionRegistry) Create() (string, *usecase.Machine) {
	id := uuid.NewString()
	m := r.factory()
	r.items.Set(id, m, gocache.DefaultExpiration)
	r.logger.Info("session created", zap.String("session", id))
	return id, m
}

// Get returns the machine of a live session
func (r *SessionRegistry) Get(id string) (*usecase.Machine, error) {
	if v, found := r.items.Get(id); found {
		return v.(*usecase.Machine), nil
	}
	return nil, domain.ErrSessionNotFound
}

// Delete ends a session; unknown ids are ignored
func (r *SessionRegistry) Delete(id string) {
	r.items.Delete(id)
}

// Len returns the number of sessions, including expired ones not yet purged
func (r *SessionRegistry) Len() int {
	return r.items.ItemCount()
}

// Close ends every session
func (r *SessionRegistry) Close() {
	for id := range r.items.Items() {
		r.items.Delete(id)
	}
}
