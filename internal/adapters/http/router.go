package http

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/greenroom-dev/greenroom/internal/config"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware tags every visitor with a stable cookie token so
// logs can correlate one visit's upload and join requests.
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

func SetupRouter(cfg *config.Config, h *Handler) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("GreenroomSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", h.health)

	api := r.Group("/api")
	api.POST("/token", h.issueToken)
	api.GET("/token", h.describeToken)
	api.POST("/uploads", h.acceptUpload)
	api.GET("/uploads/:id", h.uploadStatus)
	api.GET("/uploads/:id/events", h.uploadEvents)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
