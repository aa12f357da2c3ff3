package orch

import (
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/webrtc/v4"
)

type connectedData struct {
	SID        domain.Handle      `json:"sid"`
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

type memberData struct {
	SID      domain.Handle `json:"sid"`
	Username string        `json:"username"`
}

type existingUsersData struct {
	Users []domain.MemberView `json:"users"`
}

type roomStateData struct {
	RoomID domain.RoomID       `json:"roomId"`
	Users  []domain.MemberView `json:"users"`
	Count  int                 `json:"count"`
}

type chatData struct {
	SID       domain.Handle `json:"sid"`
	Username  string        `json:"username"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

type toggledData struct {
	SID     domain.Handle `json:"sid"`
	Enabled bool          `json:"enabled"`
}

type screenShareData struct {
	SID      domain.Handle `json:"sid"`
	Sharing  bool          `json:"sharing"`
	Username string        `json:"username"`
}

type whiteboardClearData struct {
	From domain.Handle `json:"from"`
}

type waitingData struct {
	Username string `json:"username"`
	Target   string `json:"target,omitempty"`
}

type directMatchData struct {
	Peer     domain.Handle `json:"peer"`
	PeerName string        `json:"peerName"`
	IsSender bool          `json:"isSender"`
}

type leftData struct {
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

type pongData struct {
	Timestamp time.Time `json:"timestamp"`
}

type errorData struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
