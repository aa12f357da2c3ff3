package app

import (
	"sync"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

type nopSignal struct{}

func (nopSignal) TrySend(core.Frame) error { return nil }
func (nopSignal) Close() {}

type recCall struct {
	Op     string
	Room   domain.RoomID
	Handle domain.Handle
}

// recordingReconciler captures hook calls in order.
type recordingReconciler struct {
	mu    sync.Mutex
	calls []recCall
}

func (r *recordingReconciler) add(c recCall) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *recordingReconciler) MeetingStarted(room domain.RoomID, _ *domain.UserID, _ time.Time) {
	r.add(recCall{Op: "start", Room: room})
}

func (r *recordingReconciler) MeetingEnded(room domain.RoomID, _ time.Time) {
	r.add(recCall{Op: "end", Room: room})
}

func (r *recordingReconciler) ParticipantJoined(room domain.RoomID, conn domain.Connection, _ time.Time) {
	r.add(recCall{Op: "join", Room: room, Handle: conn.Handle})
}

func (r *recordingReconciler) ParticipantLeft(room domain.RoomID, conn domain.Connection, _ time.Time) {
	r.add(recCall{Op: "leave", Room: room, Handle: conn.Handle})
}

func (r *recordingReconciler) ChatPosted(room domain.RoomID, conn domain.Connection, _ string, _ time.Time) {
	r.add(recCall{Op: "chat", Room: room, Handle: conn.Handle})
}

func (r *recordingReconciler) Forget(room domain.RoomID) {
	r.add(recCall{Op: "forget", Room: room})
}

func (r *recordingReconciler) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Op)
	}
	return out
}

// bound registers h and binds it to room, the way the dispatcher does
// before calling RoomManager.Join.
func bound(reg *Registry, h domain.Handle, room domain.RoomID) JoinGuard {
	if _, ok := reg.Lookup(h); !ok {
		reg.Register(h, nopSignal{}, nil)
	}
	reg.BindRoom(h, room)
	return func() (domain.Connection, bool) {
		c, ok := reg.Lookup(h)
		return c, ok && c.RoomID == room
	}
}
