package orch

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the relay dispatcher. It owns no state of its own: every
// decision goes through the registries it is given.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Waiting  *app.WaitingPool
	Policy   app.Policy
	Identity core.Identity

	ICEServers        []webrtc.ICEServer
	ValidateSignaling bool
}

// Connect registers a fresh handle and greets it.
func (o *Orchestrator) Connect(h domain.Handle, sig core.SignalConnection, cancel func(), token string) domain.Connection {
	conn := o.Registry.Register(h, sig, cancel)
	if token != "" {
		if uid, ok := o.authenticate(h, token); ok {
			o.Registry.SetIdentity(h, conn.DisplayName, &uid)
			conn.UserID = &uid
		}
	}
	o.send(h, EvConnected, connectedData{SID: h, ICEServers: o.ICEServers})
	return conn
}

// Disconnect removes every trace of h. Safe to call more than once.
func (o *Orchestrator) Disconnect(h domain.Handle) {
	o.Waiting.Remove(h)
	conn, ok := o.Registry.Remove(h)
	if !ok {
		return
	}
	if conn.InRoom() {
		o.leave(conn)
	}
	log.Info().Str("module", "app.orch").Str("sid", string(h)).Msg("disconnected")
}

// Kick asks the transport to drop h; cleanup then runs through Disconnect.
func (o *Orchestrator) Kick(h domain.Handle) {
	o.Registry.Cancel(h)
}

// Dispatch routes one inbound event. Events from unknown handles are ignored.
func (o *Orchestrator) Dispatch(h domain.Handle, env Envelope) {
	if _, ok := o.Registry.Lookup(h); !ok {
		return
	}
	metrics.EventsReceived.WithLabelValues(eventLabel(env.Event)).Inc()

	var err error
	switch env.Event {
	case EvJoinRoom:
		err = o.joinRoom(h, env.Data)
	case EvLeaveRoom:
		err = o.leaveRoom(h)
	case EvOffer, EvAnswer, EvICECandidate:
		err = o.relayTargeted(h, env.Event, env.Data)
	case EvChatMessage:
		err = o.chat(h, env.Data)
	case EvToggleVideo:
		err = o.toggle(h, EvVideoToggled, env.Data)
	case EvToggleAudio:
		err = o.toggle(h, EvAudioToggled, env.Data)
	case EvScreenShare:
		err = o.screenShare(h, env.Data)
	case EvWhiteboardDraw:
		err = o.whiteboardDraw(h, env.Data)
	case EvWhiteboardClr:
		err = o.whiteboardClear(h)
	case EvStartDirect:
		err = o.startDirect(h, env.Data)
	case EvPing:
		o.send(h, EvPong, pongData{Timestamp: time.Now().UTC()})
	default:
		err = fmt.Errorf("%w: unknown event %q", ErrBadPayload, env.Event)
	}
	if err != nil {
		o.Reject(h, env.Event, err)
	}
}

// Reject answers the originator, and only the originator, with an error.
func (o *Orchestrator) Reject(h domain.Handle, event string, err error) {
	metrics.EventsRejected.WithLabelValues(eventLabel(event)).Inc()
	log.Debug().Err(err).Str("module", "app.orch").Str("sid", string(h)).Str("event", event).Msg("rejected event")
	o.send(h, EvError, errorData{Event: event, Message: err.Error()})
}

func (o *Orchestrator) authenticate(h domain.Handle, token string) (domain.UserID, bool) {
	if o.Identity == nil {
		return "", false
	}
	uid, err := o.Identity.Authenticate(token)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("sid", string(h)).Msg("token rejected, continuing as guest")
		return "", false
	}
	return uid, true
}

func (o *Orchestrator) send(h domain.Handle, event string, data any) {
	f, err := encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("event", event).Msg("encode event")
		return
	}
	o.sendFrame(h, event, f)
}

// broadcast sends one frame to every handle but except.
func (o *Orchestrator) broadcast(members []domain.Handle, except domain.Handle, event string, data any) {
	f, err := encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Str("event", event).Msg("encode event")
		return
	}
	for _, h := range members {
		if h == except {
			continue
		}
		o.sendFrame(h, event, f)
	}
}

func (o *Orchestrator) sendFrame(h domain.Handle, event string, f core.Frame) {
	sig, ok := o.Registry.Sender(h)
	if !ok || sig == nil {
		return
	}
	err := sig.TrySend(f)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrBackpressure):
		metrics.FramesDropped.Inc()
		o.onBackpressure(h, event)
	default:
		log.Debug().Err(err).Str("module", "app.orch").Str("sid", string(h)).Str("event", event).Msg("send failed")
	}
}

func (o *Orchestrator) onBackpressure(h domain.Handle, event string) {
	if o.Policy == nil {
		return
	}
	switch o.Policy.OnBackPressure(h, event) {
	case app.KickMember:
		log.Warn().Str("module", "app.orch").Str("sid", string(h)).Str("event", event).Msg("slow consumer, kicking")
		o.Kick(h)
	case app.DropFrame, app.NoAction:
	}
}

var knownEvents = map[string]bool{
	EvJoinRoom: true, EvLeaveRoom: true, EvOffer: true, EvAnswer: true,
	EvICECandidate: true, EvChatMessage: true, EvToggleVideo: true,
	EvToggleAudio: true, EvScreenShare: true, EvWhiteboardDraw: true,
	EvWhiteboardClr: true, EvStartDirect: true, EvPing: true,
}

// eventLabel keeps metric cardinality bounded.
func eventLabel(event string) string {
	if knownEvents[event] {
		return event
	}
	return "unknown"
}
