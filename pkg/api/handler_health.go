package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dramaturge/dramaturge/pkg/version"
)

// healthHandler reports liveness plus seed store reachability when one is
// configured.
func (s *Server) healthHandler(c *gin.Context) {
	resp := gin.H{
		"status":  "ok",
		"version": version.Full(),
		"worlds":  len(s.engine.Store().List()),
	}

	if s.seeds != nil {
		latency, err := s.seeds.Health(c.Request.Context())
		if err != nil {
			resp["status"] = "degraded"
			resp["seed_store"] = gin.H{"status": "unreachable", "error": err.Error()}
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["seed_store"] = gin.H{"status": "ok", "latency_ms": latency.Milliseconds()}
	}

	c.JSON(http.StatusOK, resp)
}
