package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/app"
	"github.com/classpoll/classpoll/internal/config"
	"github.com/classpoll/classpoll/internal/core"
	"github.com/classpoll/classpoll/internal/domain"
)

type Controller struct {
	Coord *app.Coordinator
	Cfg   *config.Config
}

func NewController(coord *app.Coordinator, cfg *config.Config) *Controller {
	return &Controller{Coord: coord, Cfg: cfg}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connectionID derives a per-connection client id from the browser's
// client token. One browser can hold several sockets at once (second
// tab, overlapping refresh), so the token alone must never be the id:
// one socket's disconnect would tear down another.
func connectionID(token string) core.ClientID {
	return core.ClientID(token + ":" + uuid.NewString())
}

// HandleJoin upgrades the connection and joins the client to its session.
// GET /api/ws?session={session}&name={identity}&role={role}
func (ctl *Controller) HandleJoin(ctx context.Context, c *gin.Context) {
	cid := connectionID(c.GetString("client_token"))
	identity := c.Query("name")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	session := domain.SessionName(c.DefaultQuery("session", "main"))
	role := domain.Role(c.DefaultQuery("role", string(domain.RoleParticipant)))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("upgrade")
		return
	}
	conn.SetReadLimit(ctl.Cfg.ReadLimit)

	wsConn := NewWSConn(conn, ctl.Cfg.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)

	log.Info().Str("module", "ws").Str("cid", string(cid)).
		Str("session", string(session)).Str("identity", identity).Msg("new connection")

	if err := ctl.Coord.Join(ctx, cid, session, identity, role, wsConn, cancel); err != nil {
		// No pumps are running yet, write the rejection directly.
		frame, _ := json.Marshal(core.ErrorEvent{Type: core.EventError, Error: err.Error()})
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		cancel()
		wsConn.Close()
		return
	}

	go ctl.writePump(ctx, wsConn)
	go ctl.readPump(ctx, cid, wsConn)
}
