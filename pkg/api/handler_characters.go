package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dramaturge/dramaturge/pkg/engine"
)

// embodyHandler handles POST /worlds/{id}/characters/{name}/embody: starts an
// interactive chat session speaking as the character.
func (s *Server) embodyHandler(c *gin.Context) {
	var req EmbodyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	w, err := s.engine.Store().Snapshot(c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}

	name := c.Param("name")
	character, ok := w.Characters[name]
	if !ok {
		mapServiceError(c, engine.ErrCharacterNotFound)
		return
	}

	sessionID, err := s.engine.Characters().Embody(character, w.TCCN, req.SceneDescription, req.UseStrong)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, EmbodyResponse{SessionID: sessionID, Character: name})
}

// chatHandler handles POST /embodiments/{session_id}/chat.
func (s *Server) chatHandler(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	response, err := s.engine.Characters().Chat(c.Request.Context(), c.Param("session_id"), req.Message)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Response: response})
}

// endSessionHandler handles DELETE /embodiments/{session_id}. Ending a
// session is idempotent.
func (s *Server) endSessionHandler(c *gin.Context) {
	s.engine.Characters().EndSession(c.Param("session_id"))
	c.JSON(http.StatusOK, gin.H{"ended": c.Param("session_id")})
}
