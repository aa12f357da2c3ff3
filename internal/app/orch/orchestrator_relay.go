package orch

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// relayTargeted forwards offer, answer and candidate payloads to exactly one
// handle, adding the sender as "from".
func (o *Orchestrator) relayTargeted(h domain.Handle, event string, data json.RawMessage) error {
	var p targetedPayload
	if err := json.Unmarshal(data, &p); err != nil || p == nil {
		return fmt.Errorf("%w: expected an object", ErrBadPayload)
	}
	var target domain.Handle
	if raw, ok := p["target"]; !ok || json.Unmarshal(raw, &target) != nil || target == "" {
		return fmt.Errorf("%w: target is required", ErrBadPayload)
	}
	field := targetedField[event]
	body, ok := p[field]
	if !ok || isNull(body) {
		return fmt.Errorf("%w: %s is required", ErrBadPayload, field)
	}
	if o.ValidateSignaling {
		if err := checkSignaling(event, body); err != nil {
			return err
		}
	}

	from, ok := o.Registry.Lookup(h)
	if !ok {
		return nil
	}
	to, ok := o.Registry.Lookup(target)
	if !ok {
		log.Debug().Str("module", "app.orch").Str("sid", string(h)).Str("target", string(target)).Str("event", event).Msg("target gone, dropped")
		return nil
	}
	// Room-less peers only reach other room-less peers.
	if to.RoomID != from.RoomID {
		log.Warn().Str("module", "app.orch").Str("sid", string(h)).Str("target", string(target)).Str("room", string(from.RoomID)).Str("target_room", string(to.RoomID)).Str("event", event).Msg("target outside sender's room, dropped")
		return nil
	}

	p["from"], _ = json.Marshal(h)
	o.send(target, event, p)
	return nil
}

// checkSignaling parses SDP and candidates before they reach the peer.
func checkSignaling(event string, body json.RawMessage) error {
	switch event {
	case EvOffer, EvAnswer:
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(body, &sd); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignaling, err)
		}
		want := webrtc.SDPTypeOffer
		if event == EvAnswer {
			want = webrtc.SDPTypeAnswer
		}
		if sd.Type != want {
			return fmt.Errorf("%w: %s type %q", ErrBadSignaling, event, sd.Type.String())
		}
		if _, err := sd.Unmarshal(); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignaling, err)
		}
	case EvICECandidate:
		var c webrtc.ICECandidateInit
		if err := json.Unmarshal(body, &c); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignaling, err)
		}
		// An empty candidate marks end of gathering.
		if c.Candidate == "" {
			return nil
		}
		if _, err := ice.UnmarshalCandidate(strings.TrimPrefix(c.Candidate, "candidate:")); err != nil {
			return fmt.Errorf("%w: %v", ErrBadSignaling, err)
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// roomOf returns the sender and its room members, or ErrNotInRoom.
func (o *Orchestrator) roomOf(h domain.Handle) (domain.Connection, []domain.Handle, error) {
	conn, ok := o.Registry.Lookup(h)
	if !ok {
		return domain.Connection{}, nil, nil
	}
	if !conn.InRoom() {
		return conn, nil, ErrNotInRoom
	}
	return conn, o.Rooms.Members(conn.RoomID), nil
}

// chat is delivered to the whole room, sender included, and only then handed
// to the audit trail.
func (o *Orchestrator) chat(h domain.Handle, data json.RawMessage) error {
	var p chatPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	conn, members, err := o.roomOf(h)
	if err != nil || members == nil {
		return err
	}
	now := time.Now().UTC()
	o.broadcast(members, "", EvChatMessage, chatData{
		SID:       h,
		Username:  conn.DisplayName,
		Message:   p.Message,
		Timestamp: now,
	})
	o.Rooms.RecordChat(conn.RoomID, conn, p.Message, now)
	return nil
}

func (o *Orchestrator) toggle(h domain.Handle, out string, data json.RawMessage) error {
	var p togglePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	_, members, err := o.roomOf(h)
	if err != nil || members == nil {
		return err
	}
	enabled := true
	if p.Enabled != nil {
		enabled = *p.Enabled
	}
	o.broadcast(members, h, out, toggledData{SID: h, Enabled: enabled})
	return nil
}

func (o *Orchestrator) screenShare(h domain.Handle, data json.RawMessage) error {
	var p screenSharePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	conn, members, err := o.roomOf(h)
	if err != nil || members == nil {
		return err
	}
	o.broadcast(members, h, EvScreenShare, screenShareData{SID: h, Sharing: p.Sharing, Username: conn.DisplayName})
	return nil
}

// whiteboardDraw passes the stroke through untouched.
func (o *Orchestrator) whiteboardDraw(h domain.Handle, data json.RawMessage) error {
	var p map[string]json.RawMessage
	if err := json.Unmarshal(data, &p); err != nil || p == nil {
		return fmt.Errorf("%w: expected an object", ErrBadPayload)
	}
	_, members, err := o.roomOf(h)
	if err != nil || members == nil {
		return err
	}
	p["from"], _ = json.Marshal(h)
	o.broadcast(members, h, EvWhiteboardDraw, p)
	return nil
}

func (o *Orchestrator) whiteboardClear(h domain.Handle) error {
	_, members, err := o.roomOf(h)
	if err != nil || members == nil {
		return err
	}
	o.broadcast(members, h, EvWhiteboardClr, whiteboardClearData{From: h})
	return nil
}
