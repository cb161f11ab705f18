package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *WSConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Msg("writePump ctx done")
			// Closing the conn unblocks readPump's ReadMessage, which
			// then drives the disconnect path.
			c.Close()
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "ws").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cid core.ClientID, c *WSConn) {
	defer func() {
		log.Info().Str("module", "ws").Str("cid", string(cid)).Msg("readPump closing")
		ctl.Coord.OnDisconnect(cid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Str("cid", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "ws").Str("cid", string(cid)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(cid, c, data)
		}
	}
}

func (ctl *Controller) handleMessage(cid core.ClientID, c *WSConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad json")
		return
	}

	switch env.Type {
	case "createPoll":
		ctl.handleCreatePoll(cid, c, data)
	case "vote":
		ctl.handleVote(cid, c, data)
	case "kickOut":
		ctl.handleKickOut(cid, c, data)
	case "leave":
		ctl.handleLeave(cid, c)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "ws").Str("type", env.Type).Msg("unknown message")
	}
}

func (ctl *Controller) sendJSON(c *WSConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// replyError reports a rejected operation to the offending client only.
func (ctl *Controller) replyError(c *WSConn, err error) {
	ctl.sendJSON(c, core.ErrorEvent{Type: core.EventError, Error: err.Error()})
}
