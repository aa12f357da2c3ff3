package core

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrMeetingExists = errors.New("meeting already exists for room")
)

//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_meeting_store.go -package=mocks

// MeetingStore is the durable audit trail for meetings, participants and
// timeline events. The core writes to it only from audit workers.
type MeetingStore interface {
	FindMeetingByRoom(ctx context.Context, roomID domain.RoomID) (domain.Meeting, error)
	CreateMeeting(ctx context.Context, roomID domain.RoomID, createdBy *domain.UserID, startedAt time.Time) (domain.MeetingID, error)
	ReactivateMeeting(ctx context.Context, meetingID domain.MeetingID) error
	EndMeeting(ctx context.Context, meetingID domain.MeetingID, endedAt time.Time, durationSeconds int64) error

	RecordParticipantJoin(ctx context.Context, meetingID domain.MeetingID, userID *domain.UserID, displayName string, joinedAt time.Time) (domain.ParticipantID, error)
	FindOpenParticipant(ctx context.Context, meetingID domain.MeetingID, displayName string) (domain.Participant, error)
	RecordParticipantLeave(ctx context.Context, participantID domain.ParticipantID, leftAt time.Time, durationSeconds int64) error

	AppendTimelineEvent(ctx context.Context, evt domain.TimelineEvent) error
}

// Identity resolves presented credentials to an authenticated user.
type Identity interface {
	Authenticate(token string) (domain.UserID, error)
}
