package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dramaturge/dramaturge/pkg/seedstore"
)

func newSeedID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// createSeedHandler handles POST /seeds: generates the TCCN for the given
// description and persists it under the given name.
func (s *Server) createSeedHandler(c *gin.Context) {
	var req SaveSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	tccn, err := s.engine.Seeder().GenerateSeed(c.Request.Context(), req.Description)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	seed := &seedstore.Seed{
		ID:          newSeedID(),
		Name:        req.Name,
		Description: req.Description,
		TCCN:        tccn,
	}
	if err := s.seeds.Save(c.Request.Context(), seed); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seed)
}

// generateSeedHandler handles POST /seeds/generate: generates a TCCN without
// starting a world, optionally persisting it.
func (s *Server) generateSeedHandler(c *gin.Context) {
	var req GenerateSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	tccn, err := s.engine.Seeder().GenerateSeed(c.Request.Context(), req.Description)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	if !req.Save {
		c.JSON(http.StatusOK, gin.H{"tccn": tccn})
		return
	}

	name := req.Name
	if name == "" {
		name = snippetLine(req.Description, 60)
	}
	seed := &seedstore.Seed{
		ID:          newSeedID(),
		Name:        name,
		Description: req.Description,
		TCCN:        tccn,
	}
	if err := s.seeds.Save(c.Request.Context(), seed); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seed)
}

// listSeedsHandler handles GET /seeds.
func (s *Server) listSeedsHandler(c *gin.Context) {
	seeds, err := s.seeds.List(c.Request.Context())
	if err != nil {
		mapServiceError(c, err)
		return
	}
	if seeds == nil {
		seeds = []*seedstore.Seed{}
	}
	c.JSON(http.StatusOK, gin.H{"seeds": seeds})
}

// getSeedHandler handles GET /seeds/{id}.
func (s *Server) getSeedHandler(c *gin.Context) {
	seed, err := s.seeds.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, seed)
}

// deleteSeedHandler handles DELETE /seeds/{id}.
func (s *Server) deleteSeedHandler(c *gin.Context) {
	if err := s.seeds.Delete(c.Request.Context(), c.Param("id")); err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func snippetLine(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
