package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const isoMillisLayout = "2006-01-02T15:04:05.000Z07:00"

func (s *Server) Health(c *gin.Context) {
	secretState := "not configured"
	if s.secrets.Status().Configured {
		secretState = "configured"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     s.clock.Now().UTC().Format(isoMillisLayout),
		"webhookSecret": secretState,
	})
}
