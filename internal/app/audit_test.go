package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/dkeye/Meet/internal/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func startAuditor(t *testing.T, store core.MeetingStore, cfg AuditConfig) (*Auditor, context.Context) {
	t.Helper()
	a := NewAuditor(store, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a, ctx
}

func TestAuditor_CreatesMeetingAndRecordsJoin(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	conn := domain.Connection{Handle: "A", DisplayName: "alice"}

	var appended domain.TimelineEvent
	// Given no meeting exists for the room
	gomock.InOrder(
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{}, core.ErrNotFound),
		store.EXPECT().CreateMeeting(gomock.Any(), domain.RoomID("r1"), gomock.Nil(), at).Return(domain.MeetingID("m1"), nil),
		store.EXPECT().RecordParticipantJoin(gomock.Any(), domain.MeetingID("m1"), gomock.Nil(), "alice", at).Return(domain.ParticipantID("p1"), nil),
		store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt domain.TimelineEvent) error {
			appended = evt
			return nil
		}),
	)

	a := NewAuditor(store, AuditConfig{Workers: 2, QueueSize: 16, Timeout: time.Second})
	var known domain.MeetingID
	a.OnMeetingKnown(func(_ domain.RoomID, id domain.MeetingID) { known = id })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	// When the first member joins
	a.MeetingStarted("r1", nil, at)
	a.ParticipantJoined("r1", conn, at)
	req.NoError(a.Flush(ctx))

	// Then the meeting and the join are on record
	req.Equal(domain.MeetingID("m1"), known)
	req.Equal(domain.EventUserJoin, appended.Type)
	req.Equal(domain.MeetingID("m1"), appended.MeetingID)
	req.Equal("alice", appended.DisplayName)
	req.NotEmpty(appended.ID)
}

func TestAuditor_ResumesEndedMeetingWithoutLookup(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(90 * time.Second)

	gomock.InOrder(
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{}, core.ErrNotFound),
		store.EXPECT().CreateMeeting(gomock.Any(), domain.RoomID("r1"), gomock.Nil(), t0).Return(domain.MeetingID("m1"), nil),
		store.EXPECT().EndMeeting(gomock.Any(), domain.MeetingID("m1"), t1, int64(90)).Return(nil),
		store.EXPECT().ReactivateMeeting(gomock.Any(), domain.MeetingID("m1")).Return(nil),
	)

	a, ctx := startAuditor(t, store, AuditConfig{Workers: 1, QueueSize: 16, Timeout: time.Second})

	// When the meeting starts, ends and starts again
	a.MeetingStarted("r1", nil, t0)
	a.MeetingEnded("r1", t1)
	a.MeetingStarted("r1", nil, t1.Add(time.Minute))

	// Then the same meeting is reused
	req.NoError(a.Flush(ctx))
}

func TestAuditor_ReactivatesStoredLineageAndClosesByName(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := t0.Add(10 * time.Minute)
	conn := domain.Connection{Handle: "A", DisplayName: "alice"}

	var kinds []domain.TimelineEventType
	// Given the store already knows the room, e.g. after a restart
	gomock.InOrder(
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{ID: "m0", RoomID: "r1", StartedAt: t0}, nil),
		store.EXPECT().ReactivateMeeting(gomock.Any(), domain.MeetingID("m0")).Return(nil),
		store.EXPECT().FindOpenParticipant(gomock.Any(), domain.MeetingID("m0"), "alice").Return(domain.Participant{ID: "p9", JoinedAt: t0}, nil),
		store.EXPECT().RecordParticipantLeave(gomock.Any(), domain.ParticipantID("p9"), at, int64(600)).Return(nil),
		store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, evt domain.TimelineEvent) error {
			kinds = append(kinds, evt.Type)
			return nil
		}),
		store.EXPECT().EndMeeting(gomock.Any(), domain.MeetingID("m0"), at, int64(600)).Return(nil),
	)

	a, ctx := startAuditor(t, store, AuditConfig{Workers: 1, QueueSize: 16, Timeout: time.Second})

	// When a participant the auditor never saw join leaves
	a.MeetingStarted("r1", nil, t0)
	a.ParticipantLeft("r1", conn, at)
	a.MeetingEnded("r1", at)
	req.NoError(a.Flush(ctx))

	// Then the open record is found by display name
	req.Equal([]domain.TimelineEventType{domain.EventUserLeave}, kinds)
}

func TestAuditor_LostCreateRaceReusesExistingMeeting(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	at := time.Now()

	gomock.InOrder(
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{}, core.ErrNotFound),
		store.EXPECT().CreateMeeting(gomock.Any(), domain.RoomID("r1"), gomock.Any(), gomock.Any()).Return(domain.MeetingID(""), core.ErrMeetingExists),
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{ID: "m7", StartedAt: at}, nil),
		store.EXPECT().ReactivateMeeting(gomock.Any(), domain.MeetingID("m7")).Return(nil),
	)

	a, ctx := startAuditor(t, store, AuditConfig{Workers: 1, QueueSize: 16, Timeout: time.Second})
	var known domain.MeetingID
	a.OnMeetingKnown(func(_ domain.RoomID, id domain.MeetingID) { known = id })

	a.MeetingStarted("r1", nil, at)
	req.NoError(a.Flush(ctx))
	req.Equal(domain.MeetingID("m7"), known)
}

func TestAuditor_StoreFailureIsContained(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	at := time.Now()
	conn := domain.Connection{Handle: "A", DisplayName: "alice"}
	before := testutil.ToFloat64(metrics.AuditFailures.WithLabelValues(string(opJoin)))

	// Given the store is down for the first meeting start
	gomock.InOrder(
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{}, core.ErrNotFound),
		store.EXPECT().CreateMeeting(gomock.Any(), domain.RoomID("r1"), gomock.Any(), gomock.Any()).Return(domain.MeetingID(""), errors.New("disk on fire")),
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{}, core.ErrNotFound),
		store.EXPECT().CreateMeeting(gomock.Any(), domain.RoomID("r1"), gomock.Any(), gomock.Any()).Return(domain.MeetingID("m2"), nil),
		store.EXPECT().RecordParticipantJoin(gomock.Any(), domain.MeetingID("m2"), gomock.Any(), "alice", gomock.Any()).Return(domain.ParticipantID("p2"), nil),
		store.EXPECT().AppendTimelineEvent(gomock.Any(), gomock.Any()).Return(nil),
	)

	a, ctx := startAuditor(t, store, AuditConfig{Workers: 1, QueueSize: 16, Timeout: time.Second})

	// When the join that follows cannot find a meeting
	a.MeetingStarted("r1", nil, at)
	a.ParticipantJoined("r1", conn, at)
	req.NoError(a.Flush(ctx))

	// Then it is counted and later work still goes through
	req.Equal(before+1, testutil.ToFloat64(metrics.AuditFailures.WithLabelValues(string(opJoin))))

	a.MeetingStarted("r1", nil, at)
	a.ParticipantJoined("r1", conn, at)
	req.NoError(a.Flush(ctx))
}

func TestAuditor_ForgetDropsCachedLineage(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	at := time.Now()

	gomock.InOrder(
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{}, core.ErrNotFound),
		store.EXPECT().CreateMeeting(gomock.Any(), domain.RoomID("r1"), gomock.Any(), gomock.Any()).Return(domain.MeetingID("m1"), nil),
		store.EXPECT().FindMeetingByRoom(gomock.Any(), domain.RoomID("r1")).Return(domain.Meeting{ID: "m1", StartedAt: at}, nil),
		store.EXPECT().ReactivateMeeting(gomock.Any(), domain.MeetingID("m1")).Return(nil),
	)

	a, ctx := startAuditor(t, store, AuditConfig{Workers: 1, QueueSize: 16, Timeout: time.Second})

	a.MeetingStarted("r1", nil, at)
	a.Forget("r1")
	// After eviction the lineage is found in the store again
	a.MeetingStarted("r1", nil, at)
	req.NoError(a.Flush(ctx))
}

func TestAuditor_DropsWhenQueueIsFull(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMeetingStore(ctrl)
	before := testutil.ToFloat64(metrics.AuditDropped.WithLabelValues(string(opChat)))

	// Given an auditor whose worker is not running
	a := NewAuditor(store, AuditConfig{Workers: 1, QueueSize: 1})
	conn := domain.Connection{Handle: "A", DisplayName: "alice"}

	// When more commands arrive than fit
	for range 3 {
		a.ChatPosted("r1", conn, "hello", time.Now())
	}

	// Then the extra ones are dropped without blocking
	req.Len(a.shards[0].queue, 1)
	req.Equal(before+2, testutil.ToFloat64(metrics.AuditDropped.WithLabelValues(string(opChat))))
}

func TestAuditor_SameRoomAlwaysSameShard(t *testing.T) {
	req := require.New(t)
	a := NewAuditor(nil, AuditConfig{Workers: 8})
	for _, room := range []domain.RoomID{"a", "b", "standup", "r-42"} {
		req.Same(a.shardFor(room), a.shardFor(room))
	}
}
