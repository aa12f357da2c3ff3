package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dkeye/Meet/internal/core"
	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	EvJoinRoom       = "join-room"
	EvLeaveRoom      = "leave-room"
	EvOffer          = "offer"
	EvAnswer         = "answer"
	EvICECandidate   = "ice-candidate"
	EvChatMessage    = "chat-message"
	EvToggleVideo    = "toggle-video"
	EvToggleAudio    = "toggle-audio"
	EvScreenShare    = "screen-share"
	EvWhiteboardDraw = "whiteboard-draw"
	EvWhiteboardClr  = "whiteboard-clear"
	EvStartDirect    = "start-direct-connection"
	EvPing           = "ping"
)

// Outbound event names not shared with inbound ones.
const (
	EvConnected     = "connected"
	EvUserJoined    = "user-joined"
	EvExistingUsers = "existing-users"
	EvRoomState     = "room-state"
	EvUserLeft      = "user-left"
	EvVideoToggled  = "video-toggled"
	EvAudioToggled  = "audio-toggled"
	EvWaiting       = "waiting"
	EvDirectMatch   = "direct-match"
	EvLeft          = "left"
	EvPong          = "pong"
	EvError         = "error"
)

// Envelope is the wire shape of every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encode(event string, data any) (core.Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type joinRoomPayload struct {
	RoomID    string `json:"roomId" validate:"required_without=RoomIDAlt,max=64"`
	RoomIDAlt string `json:"room_id" validate:"max=64"`
	Username  string `json:"username" validate:"max=36"`
	Token     string `json:"token"`
}

func (p joinRoomPayload) room() string {
	if p.RoomID != "" {
		return p.RoomID
	}
	return p.RoomIDAlt
}

type chatPayload struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type togglePayload struct {
	Enabled *bool `json:"enabled"`
}

type screenSharePayload struct {
	Sharing bool `json:"sharing"`
}

type directPayload struct {
	Username string `json:"username" validate:"required,max=36"`
	Target   string `json:"target" validate:"max=36"`
}

// targeted payloads are kept as raw fields so they can be forwarded as is.
type targetedPayload map[string]json.RawMessage

var targetedField = map[string]string{
	EvOffer:        "offer",
	EvAnswer:       "answer",
	EvICECandidate: "candidate",
}

var (
	ErrBadPayload   = errors.New("bad payload")
	ErrNotInRoom    = errors.New("not in a room")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadSignaling = errors.New("invalid signaling payload")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode unmarshals and validates data into v.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return describe(err)
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Errorf("%w: %s is required", ErrBadPayload, fe.Field())
	case "max":
		return fmt.Errorf("%w: %s is longer than %s", ErrBadPayload, fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%w: %s failed %s", ErrBadPayload, fe.Field(), fe.Tag())
	}
}
