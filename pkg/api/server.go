// Package api exposes the narrative engine over HTTP: world lifecycle,
// advancing, the director protocol, character embodiment, seed storage, and
// the SSE streams.
package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dramaturge/dramaturge/pkg/engine"
	"github.com/dramaturge/dramaturge/pkg/seedstore"
)

// Server carries the handler dependencies.
type Server struct {
	engine *engine.Engine
	seeds  *seedstore.Store
}

// NewServer creates an API server. seeds may be nil, which disables the seed
// CRUD endpoints (404).
func NewServer(eng *engine.Engine, seeds *seedstore.Store) *Server {
	return &Server{engine: eng, seeds: seeds}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), securityHeaders())

	r.GET("/health", s.healthHandler)

	api := r.Group("/api/narrative")

	worlds := api.Group("/worlds")
	worlds.POST("", s.createWorldHandler)
	worlds.POST("/stream", s.createWorldStreamHandler)
	worlds.GET("", s.listWorldsHandler)
	worlds.GET("/:id", s.getWorldHandler)
	worlds.GET("/:id/summary", s.worldSummaryHandler)
	worlds.DELETE("/:id", s.deleteWorldHandler)
	worlds.PUT("/:id/mode", s.setModeHandler)

	worlds.POST("/:id/advance", s.advanceHandler)
	worlds.POST("/:id/advance/scene", s.advanceSceneHandler)
	worlds.POST("/:id/advance/act", s.advanceActHandler)
	worlds.GET("/:id/stream", s.advanceStreamHandler)

	worlds.POST("/:id/director/override-dice", s.overrideDiceHandler)
	worlds.POST("/:id/director/inject-event", s.injectEventHandler)
	worlds.POST("/:id/director/redirect-character", s.redirectCharacterHandler)
	worlds.POST("/:id/director/force-trope", s.forceTropeHandler)
	worlds.POST("/:id/director/choose-thread", s.chooseThreadHandler)

	worlds.GET("/:id/acts", s.actsHandler)
	worlds.GET("/:id/characters", s.charactersHandler)
	worlds.GET("/:id/threads", s.threadsHandler)
	worlds.GET("/:id/prose", s.proseHandler)
	worlds.GET("/:id/dice-history", s.diceHistoryHandler)
	worlds.GET("/:id/scenes/:scene_id/beats", s.sceneBeatsHandler)

	api.GET("/tropes/sample", s.sampleTropesHandler)

	worlds.POST("/:id/characters/:name/embody", s.embodyHandler)
	api.POST("/embodiments/:session_id/chat", s.chatHandler)
	api.DELETE("/embodiments/:session_id", s.endSessionHandler)

	if s.seeds != nil {
		seeds := api.Group("/seeds")
		seeds.POST("", s.createSeedHandler)
		seeds.POST("/generate", s.generateSeedHandler)
		seeds.GET("", s.listSeedsHandler)
		seeds.GET("/:id", s.getSeedHandler)
		seeds.DELETE("/:id", s.deleteSeedHandler)
	}

	return r
}

// requestLogger logs one line per request with method, path, status and
// latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// securityHeaders sets standard security response headers.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
