package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/core"
	"github.com/classpoll/classpoll/internal/domain"
)

func (ctl *Controller) handleCreatePoll(
	cid core.ClientID,
	conn *WSConn,
	data []byte,
) {
	type createPayload struct {
		Type     string          `json:"type"`
		Question string          `json:"question"`
		Options  []domain.Option `json:"options"`
	}
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad createPoll payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}

	log.Info().Str("module", "ws").Str("cid", string(cid)).Str("question", p.Question).Msg("createPoll")
	if err := ctl.Coord.CreatePoll(cid, p.Question, p.Options); err != nil {
		ctl.replyError(conn, err)
	}
}

func (ctl *Controller) handleVote(
	cid core.ClientID,
	conn *WSConn,
	data []byte,
) {
	type votePayload struct {
		Type     string `json:"type"`
		OptionID string `json:"optionId"`
		Version  uint64 `json:"version"`
	}
	var p votePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad vote payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}

	if err := ctl.Coord.CastVote(cid, domain.OptionID(p.OptionID), p.Version); err != nil {
		ctl.replyError(conn, err)
	}
}

func (ctl *Controller) handleKickOut(
	cid core.ClientID,
	conn *WSConn,
	data []byte,
) {
	type kickPayload struct {
		Type     string `json:"type"`
		Identity string `json:"identity"`
	}
	var p kickPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("bad kickOut payload")
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad_payload",
		})
		return
	}

	log.Info().Str("module", "ws").Str("cid", string(cid)).Str("target", p.Identity).Msg("kickOut")
	if err := ctl.Coord.Kick(cid, domain.Identity(p.Identity)); err != nil {
		ctl.replyError(conn, err)
	}
}

// handleLeave exits the session without tearing down the connection.
func (ctl *Controller) handleLeave(
	cid core.ClientID,
	conn *WSConn,
) {
	log.Info().Str("module", "ws").Str("cid", string(cid)).Msg("leave")
	ctl.Coord.Leave(cid)
	ctl.sendJSON(conn, map[string]any{
		"type": "left",
	})
}

func (ctl *Controller) handlePing(conn *WSConn) {
	ctl.sendJSON(conn, map[string]any{
		"type": "pong",
	})
}
