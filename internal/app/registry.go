package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Conn   domain.Connection
	Signal core.SignalConnection
	Cancel context.CancelFunc
}

// Registry is the connection registry: handle -> identity, room and transport.
// Its lock is a leaf: nothing else is acquired while it is held.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.Handle]*sessionEntry
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.Handle]*sessionEntry),
		now:      time.Now,
	}
}

// Register creates a bare connection with no room. The handle is assumed fresh.
func (r *Registry) Register(h domain.Handle, sig core.SignalConnection, cancel context.CancelFunc) domain.Connection {
	conn := domain.Connection{
		Handle:      h,
		DisplayName: domain.DefaultDisplayName(h),
		JoinedAt:    r.now(),
	}
	r.mu.Lock()
	r.sessions[h] = &sessionEntry{Conn: conn, Signal: sig, Cancel: cancel}
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.Connections.Set(float64(n))
	log.Info().Str("module", "app.registry").Str("sid", string(h)).Msg("registered connection")
	return conn
}

// SetIdentity updates display fields. An unknown handle lost a race with
// disconnect and is ignored.
func (r *Registry) SetIdentity(h domain.Handle, displayName string, userID *domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[h]
	if !ok {
		return
	}
	e.Conn.DisplayName = displayName
	e.Conn.UserID = userID
	log.Debug().Str("module", "app.registry").Str("sid", string(h)).Str("username", displayName).Msg("updated identity")
}

func (r *Registry) Lookup(h domain.Handle) (domain.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[h]; ok {
		return e.Conn, true
	}
	return domain.Connection{}, false
}

// Remove drops the handle and returns its last known state. Only the first
// call for a handle reports ok.
func (r *Registry) Remove(h domain.Handle) (domain.Connection, bool) {
	r.mu.Lock()
	e, ok := r.sessions[h]
	if ok {
		delete(r.sessions, h)
	}
	n := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return domain.Connection{}, false
	}

	metrics.Connections.Set(float64(n))
	log.Info().Str("module", "app.registry").Str("sid", string(h)).Msg("removed connection")
	return e.Conn, true
}

func (r *Registry) Sender(h domain.Handle) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[h]; ok {
		return e.Signal, true
	}
	return nil, false
}

// BindRoom points the connection at a room and returns the room it was in.
func (r *Registry) BindRoom(h domain.Handle, room domain.RoomID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[h]
	if !ok {
		return "", false
	}
	prev := e.Conn.RoomID
	e.Conn.RoomID = room
	e.Conn.JoinedAt = r.now()
	log.Info().Str("module", "app.registry").Str("sid", string(h)).Str("room", string(room)).Msg("updated room")
	return prev, true
}

// ClearRoom removes the room association if it still points at room.
func (r *Registry) ClearRoom(h domain.Handle, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[h]
	if !ok || e.Conn.RoomID != room {
		return false
	}
	e.Conn.RoomID = ""
	log.Info().Str("module", "app.registry").Str("sid", string(h)).Msg("removed room association")
	return true
}

// InRoom reports whether h is registered and currently bound to room.
func (r *Registry) InRoom(h domain.Handle, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[h]
	return ok && e.Conn.RoomID == room
}

// Cancel ends the connection's context; the transport then disconnects.
func (r *Registry) Cancel(h domain.Handle) bool {
	r.mu.RLock()
	e, ok := r.sessions[h]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(h)).Msg("canceled session")
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
