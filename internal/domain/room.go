package domain

import (
	"errors"
	"time"
	"unicode/utf8"
)

const MaxRoomIDLen = 64

var ErrRoomIDInvalid = errors.New("invalid room id")

type RoomID string

func ParseRoomID(raw string) (RoomID, error) {
	if raw == "" || utf8.RuneCountInString(raw) > MaxRoomIDLen {
		return "", ErrRoomIDInvalid
	}
	return RoomID(raw), nil
}

// MeetingState tracks where a room is in its meeting lineage.
type MeetingState int

const (
	NoMeeting MeetingState = iota
	MeetingActive
	MeetingEnded
)

func (s MeetingState) String() string {
	switch s {
	case MeetingActive:
		return "active"
	case MeetingEnded:
		return "ended"
	default:
		return "none"
	}
}

// RoomInfo is a read-only view of a room for APIs.
type RoomInfo struct {
	ID          RoomID    `json:"id"`
	MeetingID   MeetingID `json:"meeting_id,omitempty"`
	State       string    `json:"state"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}
