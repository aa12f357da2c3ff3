package app

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

var ErrUnknownHandle = errors.New("unknown handle")

// JoinGuard re-reads the joiner under the room lock. It reports false when
// the connection went away or was bound elsewhere in the meantime.
type JoinGuard func() (domain.Connection, bool)

type JoinResult struct {
	Room     domain.RoomID
	Joiner   domain.MemberView
	Existing []domain.MemberView // post-add snapshot without the joiner
	Members  []domain.MemberView
	Added    bool
}

type LeaveResult struct {
	Room      domain.RoomID
	Left      domain.MemberView
	Remaining []domain.MemberView
	Empty     bool
}

// RoomManager owns every room. The map lock is only held to find or create
// a room; membership is serialized by each room's own lock.
// Lock order: manager -> room -> registry.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*Room

	reg *Registry
	rec Reconciler
	now func() time.Time
}

func NewRoomManager(reg *Registry, rec Reconciler) *RoomManager {
	if rec == nil {
		rec = nopReconciler{}
	}
	return &RoomManager{
		rooms: make(map[domain.RoomID]*Room),
		reg:   reg,
		rec:   rec,
		now:   time.Now,
	}
}

// EnsureRoom returns the room, creating it on first use. Concurrent callers
// for a new id get the same *Room.
func (m *RoomManager) EnsureRoom(id domain.RoomID) (*Room, bool) {
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok = m.rooms[id]; ok {
		return r, false
	}
	r = newRoom(id, m.now())
	m.rooms[id] = r
	metrics.Rooms.Set(float64(len(m.rooms)))
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("created room")
	return r, true
}

func (m *RoomManager) room(id domain.RoomID) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// lockRoom returns the room locked, retrying when it was evicted between
// lookup and lock.
func (m *RoomManager) lockRoom(id domain.RoomID) *Room {
	for {
		r, _ := m.EnsureRoom(id)
		r.mu.Lock()
		if !r.evicted {
			return r
		}
		r.mu.Unlock()
	}
}

// AddMember is the bare membership insert. It does not touch the meeting.
func (m *RoomManager) AddMember(id domain.RoomID, h domain.Handle) bool {
	r := m.lockRoom(id)
	defer r.mu.Unlock()
	if !r.add(h) {
		log.Warn().Str("module", "app.rooms").Str("room", string(id)).Str("sid", string(h)).Msg("already a member")
		return false
	}
	return true
}

// RemoveMember is the bare membership delete. empty tells the caller the
// room has nobody left.
func (m *RoomManager) RemoveMember(id domain.RoomID, h domain.Handle) (removed, empty bool) {
	r, ok := m.room(id)
	if !ok {
		return false, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed = r.remove(h)
	empty = len(r.members) == 0
	if removed && empty {
		r.emptiedAt = m.now()
	}
	return removed, empty
}

// SnapshotMembers lists members in join order, skipping excluding.
func (m *RoomManager) SnapshotMembers(id domain.RoomID, excluding domain.Handle) []domain.MemberView {
	r, ok := m.room(id)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return m.views(r, excluding)
}

// Members returns the member handles in join order.
func (m *RoomManager) Members(id domain.RoomID) []domain.Handle {
	r, ok := m.room(id)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.members)
}

func (m *RoomManager) views(r *Room, excluding domain.Handle) []domain.MemberView {
	return lo.FilterMap(r.members, func(h domain.Handle, _ int) (domain.MemberView, bool) {
		if h == excluding {
			return domain.MemberView{}, false
		}
		conn, ok := m.reg.Lookup(h)
		if !ok {
			return domain.MemberView{}, false
		}
		return domain.MemberView{Handle: h, DisplayName: conn.DisplayName}, true
	})
}

// Join adds h to the room and starts or resumes the meeting if the room was
// idle. emit runs under the room lock with the post-add snapshot so that
// notifications from one room are produced in membership order.
func (m *RoomManager) Join(id domain.RoomID, h domain.Handle, guard JoinGuard, emit func(JoinResult)) error {
	r := m.lockRoom(id)
	defer r.mu.Unlock()

	conn, ok := guard()
	if !ok {
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("sid", string(h)).Msg("join aborted, connection gone")
		return ErrUnknownHandle
	}

	added := r.add(h)
	if added {
		now := m.now()
		if r.state != domain.MeetingActive {
			r.state = domain.MeetingActive
			m.rec.MeetingStarted(id, conn.UserID, now)
		}
		m.rec.ParticipantJoined(id, conn, now)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("sid", string(h)).Int("members", len(r.members)).Msg("joined room")
	} else {
		log.Warn().Str("module", "app.rooms").Str("room", string(id)).Str("sid", string(h)).Msg("already a member")
	}

	if emit != nil {
		emit(JoinResult{
			Room:     id,
			Joiner:   domain.MemberView{Handle: h, DisplayName: conn.DisplayName},
			Existing: m.views(r, h),
			Members:  m.views(r, ""),
			Added:    added,
		})
	}
	return nil
}

// Leave removes conn from the room and ends the meeting when it was the last
// member. A second Leave for the same handle is a no-op.
func (m *RoomManager) Leave(id domain.RoomID, conn domain.Connection, emit func(LeaveResult)) bool {
	r, ok := m.room(id)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.remove(conn.Handle) {
		return false
	}
	now := m.now()
	m.rec.ParticipantLeft(id, conn, now)

	empty := len(r.members) == 0
	if empty {
		r.emptiedAt = now
		if r.state == domain.MeetingActive {
			r.state = domain.MeetingEnded
			m.rec.MeetingEnded(id, now)
		}
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("sid", string(conn.Handle)).Int("members", len(r.members)).Msg("left room")

	if emit != nil {
		emit(LeaveResult{
			Room:      id,
			Left:      domain.MemberView{Handle: conn.Handle, DisplayName: conn.DisplayName},
			Remaining: m.views(r, ""),
			Empty:     empty,
		})
	}
	return true
}

// RecordChat hands a delivered chat line to the reconciler, keeping it in
// order with the room's joins and leaves.
func (m *RoomManager) RecordChat(id domain.RoomID, conn domain.Connection, message string, at time.Time) bool {
	r, ok := m.room(id)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.has(conn.Handle) {
		return false
	}
	m.rec.ChatPosted(id, conn, message, at)
	return true
}

// SetMeetingID records the durable meeting once the reconciler knows it.
func (m *RoomManager) SetMeetingID(id domain.RoomID, meetingID domain.MeetingID) {
	r, ok := m.room(id)
	if !ok {
		return
	}
	r.mu.Lock()
	r.meetingID = meetingID
	r.mu.Unlock()
}

func (m *RoomManager) Info(id domain.RoomID) (domain.RoomInfo, bool) {
	r, ok := m.room(id)
	if !ok {
		return domain.RoomInfo{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info(), true
}

func (m *RoomManager) List() []domain.RoomInfo {
	m.mu.RLock()
	out := make([]domain.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		r.mu.Lock()
		out = append(out, r.info())
		r.mu.Unlock()
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.RoomInfo) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// EvictIdle drops rooms that have been empty for longer than horizon and
// tells the reconciler to forget them. A zero horizon keeps everything.
func (m *RoomManager) EvictIdle(horizon time.Duration) []domain.RoomID {
	if horizon <= 0 {
		return nil
	}
	cutoff := m.now().Add(-horizon)

	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []domain.RoomID
	for id, r := range m.rooms {
		r.mu.Lock()
		since := r.idleSince()
		if !since.IsZero() && since.Before(cutoff) {
			r.evicted = true
			delete(m.rooms, id)
			m.rec.Forget(id)
			evicted = append(evicted, id)
		}
		r.mu.Unlock()
	}
	metrics.Rooms.Set(float64(len(m.rooms)))
	for _, id := range evicted {
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("evicted idle room")
	}
	return evicted
}
