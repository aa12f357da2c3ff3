package orch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

func (o *Orchestrator) joinRoom(h domain.Handle, data json.RawMessage) error {
	var p joinRoomPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	roomID, err := domain.ParseRoomID(strings.TrimSpace(p.room()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	conn, ok := o.Registry.Lookup(h)
	if !ok {
		return nil
	}
	name := domain.DefaultDisplayName(h)
	if strings.TrimSpace(p.Username) != "" {
		if name, err = domain.DisplayName(p.Username); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
	}
	userID := conn.UserID
	if p.Token != "" {
		if uid, ok := o.authenticate(h, p.Token); ok {
			userID = &uid
		}
	}

	if conn.InRoom() && conn.RoomID != roomID {
		log.Info().Str("module", "app.orch").Str("sid", string(h)).Str("from_room", string(conn.RoomID)).Str("room", string(roomID)).Msg("moving to another room")
		o.leave(conn)
	}
	o.Registry.SetIdentity(h, name, userID)
	return o.Join(h, roomID)
}

// Join binds h to roomID and notifies the room. Existing members learn about
// the joiner, the joiner gets everyone else, and all get the new roster.
func (o *Orchestrator) Join(h domain.Handle, roomID domain.RoomID) error {
	if _, ok := o.Registry.BindRoom(h, roomID); !ok {
		return nil
	}
	guard := func() (domain.Connection, bool) {
		c, ok := o.Registry.Lookup(h)
		return c, ok && c.RoomID == roomID
	}
	err := o.Rooms.Join(roomID, h, guard, func(res app.JoinResult) {
		if res.Added {
			o.broadcast(handles(res.Existing), h, EvUserJoined, memberData{SID: h, Username: res.Joiner.DisplayName})
		}
		o.send(h, EvExistingUsers, existingUsersData{Users: nonNil(res.Existing)})
		o.broadcast(handles(res.Members), "", EvRoomState, roomStateData{
			RoomID: roomID,
			Users:  nonNil(res.Members),
			Count:  len(res.Members),
		})
	})
	if errors.Is(err, app.ErrUnknownHandle) {
		return nil
	}
	return err
}

func (o *Orchestrator) leaveRoom(h domain.Handle) error {
	conn, ok := o.Registry.Lookup(h)
	if !ok {
		return nil
	}
	if conn.InRoom() {
		o.leave(conn)
	}
	o.send(h, EvLeft, leftData{RoomID: conn.RoomID})
	return nil
}

// leave runs the full leave path for conn's room: membership, meeting and
// notifications to whoever is left.
func (o *Orchestrator) leave(conn domain.Connection) {
	o.Registry.ClearRoom(conn.Handle, conn.RoomID)
	o.Rooms.Leave(conn.RoomID, conn, func(res app.LeaveResult) {
		rest := handles(res.Remaining)
		o.broadcast(rest, conn.Handle, EvUserLeft, memberData{SID: conn.Handle, Username: conn.DisplayName})
		o.broadcast(rest, conn.Handle, EvRoomState, roomStateData{
			RoomID: res.Room,
			Users:  nonNil(res.Remaining),
			Count:  len(res.Remaining),
		})
	})
}

func handles(views []domain.MemberView) []domain.Handle {
	return lo.Map(views, func(v domain.MemberView, _ int) domain.Handle { return v.Handle })
}

func nonNil(views []domain.MemberView) []domain.MemberView {
	if views == nil {
		return []domain.MemberView{}
	}
	return views
}
