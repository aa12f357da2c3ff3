package domain

import "time"

type (
	MeetingID     string
	ParticipantID string
)

// Meeting is the durable record of a room's meeting lineage.
type Meeting struct {
	ID              MeetingID  `msgpack:"id"`
	RoomID          RoomID     `msgpack:"room_id"`
	CreatedBy       *UserID    `msgpack:"created_by"`
	StartedAt       time.Time  `msgpack:"started_at"`
	EndedAt         *time.Time `msgpack:"ended_at"`
	IsActive        bool       `msgpack:"is_active"`
	DurationSeconds int64      `msgpack:"duration_seconds"`
}

type Participant struct {
	ID              ParticipantID `msgpack:"id"`
	MeetingID       MeetingID     `msgpack:"meeting_id"`
	UserID          *UserID       `msgpack:"user_id"`
	DisplayName     string        `msgpack:"username"`
	JoinedAt        time.Time     `msgpack:"joined_at"`
	LeftAt          *time.Time    `msgpack:"left_at"`
	DurationSeconds int64         `msgpack:"duration_seconds"`
}

type TimelineEventType string

const (
	EventUserJoin  TimelineEventType = "user_join"
	EventUserLeave TimelineEventType = "user_leave"
	EventChat      TimelineEventType = "chat"
)

type TimelineEvent struct {
	ID          string            `msgpack:"id"`
	MeetingID   MeetingID         `msgpack:"meeting_id"`
	Type        TimelineEventType `msgpack:"event_type"`
	UserID      *UserID           `msgpack:"user_id"`
	DisplayName string            `msgpack:"username"`
	Message     string            `msgpack:"message"`
	At          time.Time         `msgpack:"timestamp"`
}

// Seconds returns the whole seconds between two instants, never negative.
func Seconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
