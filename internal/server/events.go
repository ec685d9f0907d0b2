package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
)

func (s *Server) ListEvents(c *gin.Context) {
	var query domain.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.events.List(c.Request.Context(), domain.ListRequest{
		EventType: strings.TrimSpace(query.EventType),
		Commodity: strings.TrimSpace(query.Commodity),
		Limit:     strings.TrimSpace(query.Limit),
		Offset:    strings.TrimSpace(query.Offset),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetEventByID(c *gin.Context) {
	event, err := s.events.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

func (s *Server) ClearEvents(c *gin.Context) {
	if err := s.events.Clear(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) GetStats(c *gin.Context) {
	resp, err := s.events.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
