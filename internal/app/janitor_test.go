package app

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestJanitor_EvictsIdleRooms(t *testing.T) {
	req := require.New(t)
	rec := &recordingReconciler{}
	rooms := NewRoomManager(NewRegistry(), rec)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rooms.now = func() time.Time { return base }
	rooms.EnsureRoom("stale")

	// Given the room has been idle for an hour
	rooms.now = func() time.Time { return base.Add(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Janitor{Rooms: rooms, Horizon: time.Minute, Interval: 5 * time.Millisecond}.Run(ctx)
	}()

	// Then the janitor removes it and tells the reconciler
	req.Eventually(func() bool {
		_, ok := rooms.Info("stale")
		return !ok
	}, time.Second, 5*time.Millisecond)
	req.Contains(rec.ops(), "forget")

	cancel()
	req.NoError(<-done)
}

func TestJanitor_DisabledWithoutHorizon(t *testing.T) {
	req := require.New(t)
	rooms := NewRoomManager(NewRegistry(), nil)
	rooms.EnsureRoom(domain.RoomID("kept"))

	// A zero horizon returns immediately
	req.NoError(Janitor{Rooms: rooms}.Run(context.Background()))
	_, ok := rooms.Info("kept")
	req.True(ok)
}
