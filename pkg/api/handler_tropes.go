package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// sampleTropesHandler handles GET /tropes/sample?n=N&medium=M&title=T: draws
// from the corpus, media-flavored when a medium is given. Useful for
// operators exploring what force-trope can reach.
func (s *Server) sampleTropesHandler(c *gin.Context) {
	n := 5
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be an integer in [1,50]"})
			return
		}
		n = parsed
	}

	corpus := s.engine.Tropes()
	if medium := c.Query("medium"); medium != "" {
		c.JSON(http.StatusOK, corpus.SampleByMedia(medium, c.Query("title"), n))
		return
	}
	c.JSON(http.StatusOK, corpus.SampleRandom(n))
}
