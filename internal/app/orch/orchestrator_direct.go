package orch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/rs/zerolog/log"
)

// startDirect pairs two room-less peers, or parks the requester until a peer
// shows up.
func (o *Orchestrator) startDirect(h domain.Handle, data json.RawMessage) error {
	var p directPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	name, err := domain.DisplayName(p.Username)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	target := strings.TrimSpace(p.Target)

	m, err := o.Waiting.Request(h, name, target)
	if err != nil {
		return err
	}
	if !m.Found() {
		o.send(h, EvWaiting, waitingData{Username: name, Target: target})
		return nil
	}

	metrics.DirectMatches.Inc()
	log.Info().Str("module", "app.orch").Str("sender", string(m.Sender.Handle)).Str("receiver", string(m.Receiver.Handle)).Msg("direct match")
	o.send(m.Sender.Handle, EvDirectMatch, directMatchData{Peer: m.Receiver.Handle, PeerName: m.Receiver.DisplayName, IsSender: true})
	o.send(m.Receiver.Handle, EvDirectMatch, directMatchData{Peer: m.Sender.Handle, PeerName: m.Sender.DisplayName, IsSender: false})
	return nil
}
