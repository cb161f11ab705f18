package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/classpoll/classpoll/internal/adapters/ws"
	"github.com/classpoll/classpoll/internal/app"
	"github.com/classpoll/classpoll/internal/config"
	"github.com/classpoll/classpoll/internal/domain"
	"github.com/classpoll/classpoll/internal/history"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SetupRouter wires HTTP routes (REST + WS) with the coordinator.
// - Static files are served from cfg.StaticPath.
// - REST is under /api/*
// - WebSocket upgrade lives at /api/ws
func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, store *history.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	sessionStore := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ClasspollSessions", sessionStore))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// GET /api/sessions — list sessions
	api.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": coord.Sessions.List()})
	})

	// GET /api/sessions/:name — full session snapshot
	api.GET("/sessions/:name", func(c *gin.Context) {
		name := domain.SessionName(c.Param("name"))
		sess, ok := coord.Sessions.Get(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	// GET /api/sessions/:name/history — archived polls, oldest first
	api.GET("/sessions/:name/history", func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
			return
		}
		name := domain.SessionName(c.Param("name"))
		polls, err := store.BySession(name)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("history query")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "history query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"polls": polls})
	})

	// DELETE /api/sessions/:name — end a session, disconnecting everyone
	api.DELETE("/sessions/:name", func(c *gin.Context) {
		name := domain.SessionName(c.Param("name"))
		coord.EvictSession(name)
		c.Status(http.StatusNoContent)
	})

	// GET /api/ws?session={session}&name={identity}&role={role}
	ctrl := ws.NewController(coord, cfg)
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("cid", c.GetString("client_token")).Msg("ws endpoint hit")
		ctrl.HandleJoin(ctx, c)
	})

	return r
}
