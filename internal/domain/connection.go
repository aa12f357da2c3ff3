package domain

import "time"

// Handle identifies one live transport session.
type Handle string

// Connection is the registry's view of a handle. No transport here.
type Connection struct {
	Handle      Handle
	DisplayName string
	RoomID      RoomID
	UserID      *UserID
	JoinedAt    time.Time
}

func (c Connection) InRoom() bool { return c.RoomID != "" }

// MemberView is what other participants see about a member.
type MemberView struct {
	Handle      Handle `json:"sid"`
	DisplayName string `json:"username"`
}
