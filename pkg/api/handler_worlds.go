package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dramaturge/dramaturge/pkg/engine"
	"github.com/dramaturge/dramaturge/pkg/models"
)

func initParamsFromRequest(req CreateWorldRequest) engine.InitParams {
	return engine.InitParams{
		SeedDescription: req.SeedDescription,
		Mode:            models.Mode(req.Mode),
		TropePoolSize:   req.TropePoolSize,
		NumCharacters:   req.NumCharacters,
	}
}

func worldCreatedResponse(w *models.World) WorldCreatedResponse {
	names := make([]string, 0, len(w.Characters))
	for name := range w.Characters {
		names = append(names, name)
	}
	return WorldCreatedResponse{
		WorldID:       w.ID,
		Status:        w.Status,
		Characters:    names,
		ThreadCount:   len(w.ThreadStates),
		TropePoolSize: len(w.GlobalTropePool),
	}
}

// createWorldHandler handles POST /worlds: synchronous initialization.
func (s *Server) createWorldHandler(c *gin.Context) {
	var req CreateWorldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	w, err := s.engine.InitializeWorld(c.Request.Context(), initParamsFromRequest(req), nil)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, worldCreatedResponse(w))
}

// createWorldStreamHandler handles POST /worlds/stream: initialization with
// SSE progress frames, terminated by a done or error frame. The
// initialization runs detached from the request context, so a disconnect
// discards frames without aborting the world.
func (s *Server) createWorldStreamHandler(c *gin.Context) {
	var req CreateWorldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	frames := make(chan any, sseFrameCap)
	go func() {
		defer close(frames)
		w, err := s.engine.InitializeWorld(context.Background(), initParamsFromRequest(req),
			func(step, detail string) {
				frames <- progressFrame{Step: step, Detail: detail}
			})
		if err != nil {
			frames <- progressFrame{Step: "error", Detail: err.Error()}
			return
		}
		frames <- progressFrame{Step: "done", WorldID: w.ID}
	}()

	streamFrames(c, frames)
}

// listWorldsHandler handles GET /worlds.
func (s *Server) listWorldsHandler(c *gin.Context) {
	worlds := s.engine.Store().List()
	summaries := make([]WorldSummary, 0, len(worlds))
	for _, w := range worlds {
		summaries = append(summaries, summaryFromWorld(w))
	}
	c.JSON(http.StatusOK, gin.H{"worlds": summaries})
}

// getWorldHandler handles GET /worlds/{id}: the full aggregate.
func (s *Server) getWorldHandler(c *gin.Context) {
	w, err := s.engine.Store().Snapshot(c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// worldSummaryHandler handles GET /worlds/{id}/summary: the condensed
// acts-scenes-beats timeline.
func (s *Server) worldSummaryHandler(c *gin.Context) {
	w, err := s.engine.Store().Snapshot(c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, timelineFromWorld(w))
}

// deleteWorldHandler handles DELETE /worlds/{id}.
func (s *Server) deleteWorldHandler(c *gin.Context) {
	if err := s.engine.DeleteWorld(c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// setModeHandler handles PUT /worlds/{id}/mode.
func (s *Server) setModeHandler(c *gin.Context) {
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if err := s.engine.SetMode(c.Param("id"), models.Mode(req.Mode)); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"world_id": c.Param("id"), "mode": req.Mode})
}

// advanceHandler handles POST /worlds/{id}/advance: n discrete steps.
func (s *Server) advanceHandler(c *gin.Context) {
	var req AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	events, err := s.engine.AdvanceSteps(c.Request.Context(), c.Param("id"), req.Steps, nil)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, EventsResponse{Events: events})
}

// advanceSceneHandler handles POST /worlds/{id}/advance/scene.
func (s *Server) advanceSceneHandler(c *gin.Context) {
	events, err := s.engine.AdvanceScene(c.Request.Context(), c.Param("id"), nil)
	s.respondBoundaryAdvance(c, events, err)
}

// advanceActHandler handles POST /worlds/{id}/advance/act.
func (s *Server) advanceActHandler(c *gin.Context) {
	events, err := s.engine.AdvanceAct(c.Request.Context(), c.Param("id"), nil)
	s.respondBoundaryAdvance(c, events, err)
}

func (s *Server) respondBoundaryAdvance(c *gin.Context, events []engine.Event, err error) {
	if err != nil {
		if engine.IsSafetyLimit(err) {
			c.JSON(http.StatusOK, EventsResponse{Events: events, LimitReached: true})
			return
		}
		mapServiceError(c, err)
		return
	}
	if events == nil {
		events = []engine.Event{}
	}
	c.JSON(http.StatusOK, EventsResponse{Events: events})
}

// advanceStreamHandler handles GET /worlds/{id}/stream?steps=N: advances N
// steps, pushing every event as an SSE frame. Generation runs detached from
// the request context; a disconnect stops the stream, not the work.
func (s *Server) advanceStreamHandler(c *gin.Context) {
	steps := 10
	if raw := c.Query("steps"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "steps must be a non-negative integer"})
			return
		}
		steps = n
	}

	frames := make(chan any, sseFrameCap)
	go func() {
		defer close(frames)
		_, err := s.engine.AdvanceSteps(context.Background(), c.Param("id"), steps,
			func(ev engine.Event) {
				frames <- ev
			})
		if err != nil {
			frames <- progressFrame{Step: "error", Detail: err.Error()}
			return
		}
		frames <- progressFrame{Step: "done"}
	}()

	streamFrames(c, frames)
}

// actsHandler handles GET /worlds/{id}/acts.
func (s *Server) actsHandler(c *gin.Context) {
	s.readWorld(c, func(w *models.World) any {
		return gin.H{"acts": w.Acts}
	})
}

// charactersHandler handles GET /worlds/{id}/characters.
func (s *Server) charactersHandler(c *gin.Context) {
	s.readWorld(c, func(w *models.World) any {
		return gin.H{"characters": w.Characters}
	})
}

// threadsHandler handles GET /worlds/{id}/threads.
func (s *Server) threadsHandler(c *gin.Context) {
	s.readWorld(c, func(w *models.World) any {
		return gin.H{"threads": w.ThreadStates}
	})
}

// proseHandler handles GET /worlds/{id}/prose.
func (s *Server) proseHandler(c *gin.Context) {
	s.readWorld(c, func(w *models.World) any {
		return gin.H{"accumulated_prose": w.AccumulatedProse}
	})
}

// diceHistoryHandler handles GET /worlds/{id}/dice-history.
func (s *Server) diceHistoryHandler(c *gin.Context) {
	history, err := s.engine.DiceHistory(c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	if history == nil {
		history = []engine.DiceHistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"rolls": history})
}

// sceneBeatsHandler handles GET /worlds/{id}/scenes/{scene_id}/beats.
func (s *Server) sceneBeatsHandler(c *gin.Context) {
	sceneID := c.Param("scene_id")
	w, err := s.engine.Store().Snapshot(c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	for _, act := range w.Acts {
		for _, scene := range act.Scenes {
			if scene.ID == sceneID {
				c.JSON(http.StatusOK, gin.H{"scene_id": sceneID, "beats": scene.Beats})
				return
			}
		}
	}
	mapServiceError(c, fmt.Errorf("%w: %s", engine.ErrSceneNotFound, sceneID))
}

func (s *Server) readWorld(c *gin.Context, view func(w *models.World) any) {
	w, err := s.engine.Store().Snapshot(c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view(w))
}
