package orch

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeConn records every envelope delivered to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []Envelope
	full   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	var env Envelope
	if err := json.Unmarshal(f, &env); err != nil {
		return err
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, f.Event)
	}
	return out
}

// take returns the data of the last envelope named event and clears history.
func (c *fakeConn) take(t *testing.T, event string, into any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		if c.frames[i].Event == event {
			require.NoError(t, json.Unmarshal(c.frames[i].Data, into))
			c.frames = nil
			return
		}
	}
	require.Failf(t, "event not delivered", "%q not in %v", event, c.frames)
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

func (c *fakeConn) setFull(full bool) {
	c.mu.Lock()
	c.full = full
	c.mu.Unlock()
}

type harness struct {
	t       *testing.T
	o       *Orchestrator
	conns   map[domain.Handle]*fakeConn
	kicked  map[domain.Handle]int
	kickedM sync.Mutex
}

func newHarness(t *testing.T, rec app.Reconciler) *harness {
	reg := app.NewRegistry()
	return &harness{
		t: t,
		o: &Orchestrator{
			Registry: reg,
			Rooms:    app.NewRoomManager(reg, rec),
			Waiting:  app.NewWaitingPool(),
			Policy:   app.SimplePolicy{},
		},
		conns:  make(map[domain.Handle]*fakeConn),
		kicked: make(map[domain.Handle]int),
	}
}

func (h *harness) connect(id domain.Handle) *fakeConn {
	c := &fakeConn{}
	h.conns[id] = c
	h.o.Connect(id, c, func() {
		h.kickedM.Lock()
		h.kicked[id]++
		h.kickedM.Unlock()
	}, "")
	return c
}

func (h *harness) send(id domain.Handle, event string, data any) {
	h.t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(h.t, err)
		raw = b
	}
	h.o.Dispatch(id, Envelope{Event: event, Data: raw})
}

func (h *harness) join(id domain.Handle, room, name string) {
	h.send(id, EvJoinRoom, map[string]string{"roomId": room, "username": name})
}

func (h *harness) resetAll() {
	for _, c := range h.conns {
		c.reset()
	}
}

func (h *harness) kicks(id domain.Handle) int {
	h.kickedM.Lock()
	defer h.kickedM.Unlock()
	return h.kicked[id]
}

// chatRecorder is a Reconciler that keeps chat lines and counts leaves.
type chatRecorder struct {
	messages []string
	leaves   int
}

func (r *chatRecorder) MeetingStarted(domain.RoomID, *domain.UserID, time.Time) {}
func (r *chatRecorder) MeetingEnded(domain.RoomID, time.Time) {}
func (r *chatRecorder) ParticipantJoined(domain.RoomID, domain.Connection, time.Time) {}
func (r *chatRecorder) ParticipantLeft(domain.RoomID, domain.Connection, time.Time) {
	r.leaves++
}
func (r *chatRecorder) ChatPosted(_ domain.RoomID, _ domain.Connection, msg string, _ time.Time) {
	r.messages = append(r.messages, msg)
}
func (r *chatRecorder) Forget(domain.RoomID) {}
