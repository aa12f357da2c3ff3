package store

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MeetingStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMeetingStore(db)
}

func TestMeetingStore_CreateAndFind(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	uid := domain.UserID("u-1")
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// Given no meeting for the room
	_, err := s.FindMeetingByRoom(ctx, "r1")
	req.ErrorIs(err, core.ErrNotFound)

	// When one is created
	id, err := s.CreateMeeting(ctx, "r1", &uid, started)
	req.NoError(err)
	req.NotEmpty(id)

	// Then it is found by room and a second create is refused
	m, err := s.FindMeetingByRoom(ctx, "r1")
	req.NoError(err)
	req.Equal(id, m.ID)
	req.Equal(domain.RoomID("r1"), m.RoomID)
	req.True(m.IsActive)
	req.True(started.Equal(m.StartedAt))
	req.NotNil(m.CreatedBy)
	req.Equal(uid, *m.CreatedBy)

	_, err = s.CreateMeeting(ctx, "r1", nil, started)
	req.ErrorIs(err, core.ErrMeetingExists)
}

func TestMeetingStore_EndAndReactivate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ended := started.Add(45 * time.Minute)

	id, err := s.CreateMeeting(ctx, "r1", nil, started)
	req.NoError(err)

	req.NoError(s.EndMeeting(ctx, id, ended, 2700))
	m, err := s.Meeting(ctx, id)
	req.NoError(err)
	req.False(m.IsActive)
	req.NotNil(m.EndedAt)
	req.True(ended.Equal(*m.EndedAt))
	req.Equal(int64(2700), m.DurationSeconds)

	// Reactivation keeps the original start
	req.NoError(s.ReactivateMeeting(ctx, id))
	m, err = s.Meeting(ctx, id)
	req.NoError(err)
	req.True(m.IsActive)
	req.Nil(m.EndedAt)
	req.True(started.Equal(m.StartedAt))

	req.ErrorIs(s.ReactivateMeeting(ctx, "missing"), core.ErrNotFound)
}

func TestMeetingStore_Participants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := s.CreateMeeting(ctx, "r1", nil, t0)
	req.NoError(err)

	// Given alice joined twice and left once
	first, err := s.RecordParticipantJoin(ctx, id, nil, "alice", t0)
	req.NoError(err)
	_, err = s.RecordParticipantJoin(ctx, id, nil, "bob", t0.Add(time.Second))
	req.NoError(err)
	req.NoError(s.RecordParticipantLeave(ctx, first, t0.Add(time.Minute), 60))
	second, err := s.RecordParticipantJoin(ctx, id, nil, "alice", t0.Add(2*time.Minute))
	req.NoError(err)

	// Then the open record is the latest one
	open, err := s.FindOpenParticipant(ctx, id, "alice")
	req.NoError(err)
	req.Equal(second, open.ID)
	req.True(t0.Add(2 * time.Minute).Equal(open.JoinedAt))

	_, err = s.FindOpenParticipant(ctx, id, "carol")
	req.ErrorIs(err, core.ErrNotFound)

	parts, err := s.Participants(ctx, id)
	req.NoError(err)
	req.Len(parts, 3)
	req.Equal(first, parts[0].ID)
	req.NotNil(parts[0].LeftAt)
	req.Equal(int64(60), parts[0].DurationSeconds)
	req.Equal("bob", parts[1].DisplayName)
	req.Equal(second, parts[2].ID)

	// Joins need an existing meeting
	_, err = s.RecordParticipantJoin(ctx, "missing", nil, "dave", t0)
	req.ErrorIs(err, core.ErrNotFound)
	req.ErrorIs(s.RecordParticipantLeave(ctx, "missing", t0, 0), core.ErrNotFound)
}

func TestMeetingStore_TimelineIsOrdered(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := s.CreateMeeting(ctx, "r1", nil, t0)
	req.NoError(err)

	// Appended out of order on purpose
	req.NoError(s.AppendTimelineEvent(ctx, domain.TimelineEvent{MeetingID: id, Type: domain.EventChat, DisplayName: "alice", Message: "hi", At: t0.Add(2 * time.Second)}))
	req.NoError(s.AppendTimelineEvent(ctx, domain.TimelineEvent{MeetingID: id, Type: domain.EventUserJoin, DisplayName: "alice", At: t0}))
	req.NoError(s.AppendTimelineEvent(ctx, domain.TimelineEvent{MeetingID: id, Type: domain.EventUserLeave, DisplayName: "alice", At: t0.Add(time.Minute)}))

	events, err := s.Timeline(ctx, id)
	req.NoError(err)
	req.Len(events, 3)
	req.Equal(domain.EventUserJoin, events[0].Type)
	req.Equal(domain.EventChat, events[1].Type)
	req.Equal("hi", events[1].Message)
	req.NotEmpty(events[1].ID)
	req.Equal(domain.EventUserLeave, events[2].Type)

	other, err := s.Timeline(ctx, "other")
	req.NoError(err)
	req.Empty(other)
}

func TestMeetingStore_CanceledContext(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateMeeting(ctx, "r1", nil, time.Now())
	req.ErrorIs(err, context.Canceled)
	_, err = s.FindMeetingByRoom(ctx, "r1")
	req.ErrorIs(err, context.Canceled)
}
