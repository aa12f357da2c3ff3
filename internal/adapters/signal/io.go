package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, h domain.Handle, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(h)).Msg("writePump ctx done")
			ctl.closeGracefully(c, websocket.CloseNormalClosure, "bye")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(h)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(h)).Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(h)).Msg("writePump ping failed")
				c.Close()
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, h domain.Handle, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(h)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(h)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(h)
		}
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(h)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(h, data)
	}
}

func (ctl *SignalWSController) handleSignal(h domain.Handle, data []byte) {
	var env orch.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(h)).Msg("bad json")
		ctl.Orch.Reject(h, env.Event, fmt.Errorf("%w: expected {\"event\", \"data\"}", orch.ErrBadPayload))
		return
	}
	if limited(env.Event) && ctl.Limiter != nil && !ctl.Limiter.Allow(h) {
		ctl.Orch.Reject(h, env.Event, orch.ErrRateLimited)
		return
	}
	ctl.Orch.Dispatch(h, env)
}

// limited lists the events that mutate shared state and are rate limited.
func limited(event string) bool {
	return event == orch.EvJoinRoom || event == orch.EvStartDirect
}
