package app

import (
	"slices"
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

// Room is the in-memory state of one logical room. Every field is guarded by
// mu; RoomManager is the only writer.
type Room struct {
	mu        sync.Mutex
	id        domain.RoomID
	members   []domain.Handle
	meetingID domain.MeetingID
	state     domain.MeetingState
	createdAt time.Time
	emptiedAt time.Time
	evicted   bool
}

func newRoom(id domain.RoomID, now time.Time) *Room {
	return &Room{id: id, createdAt: now}
}

func (r *Room) ID() domain.RoomID { return r.id }

func (r *Room) has(h domain.Handle) bool {
	return slices.Contains(r.members, h)
}

func (r *Room) add(h domain.Handle) bool {
	if r.has(h) {
		return false
	}
	r.members = append(r.members, h)
	return true
}

func (r *Room) remove(h domain.Handle) bool {
	i := slices.Index(r.members, h)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	return true
}

// idleSince is zero while the room has members.
func (r *Room) idleSince() time.Time {
	if len(r.members) > 0 {
		return time.Time{}
	}
	if r.emptiedAt.IsZero() {
		return r.createdAt
	}
	return r.emptiedAt
}

func (r *Room) info() domain.RoomInfo {
	return domain.RoomInfo{
		ID:          r.id,
		MeetingID:   r.meetingID,
		State:       r.state.String(),
		MemberCount: len(r.members),
		CreatedAt:   r.createdAt,
	}
}
