package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dramaturge/dramaturge/pkg/models"
)

// overrideDiceHandler handles the override-dice director op. The forced raw
// roll drives the next beat for the named actor; the resolved beat event is
// returned.
func (s *Server) overrideDiceHandler(c *gin.Context) {
	var req OverrideDiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	event, err := s.engine.OverrideDice(c.Request.Context(), c.Param("id"), req.Actor, req.Action, req.ForcedRoll)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// injectEventHandler handles the inject-event director op.
func (s *Server) injectEventHandler(c *gin.Context) {
	var req InjectEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	worldEvent, err := s.engine.InjectEvent(c.Param("id"), req.EventDescription)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"world_event": worldEvent})
}

// redirectCharacterHandler handles the redirect-character director op.
func (s *Server) redirectCharacterHandler(c *gin.Context) {
	var req RedirectCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := s.engine.RedirectCharacter(c.Param("id"), req.CharacterName, req.NewDirection); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"character":     req.CharacterName,
		"new_direction": req.NewDirection,
	})
}

// forceTropeHandler handles the force-trope director op.
func (s *Server) forceTropeHandler(c *gin.Context) {
	var req ForceTropeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	tropes, err := s.engine.ForceTrope(c.Param("id"), req.TropeQuery)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"injected_tropes": tropes})
}

// chooseThreadHandler handles the choose-thread director op.
func (s *Server) chooseThreadHandler(c *gin.Context) {
	var req ChooseThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	err := s.engine.ChooseThread(c.Param("id"), *req.ThreadIndex, models.ThreadStatus(req.NewStatus))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"thread_index": *req.ThreadIndex,
		"new_status":   req.NewStatus,
	})
}
