package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/webhookharness/internal/secret"
)

type setSecretRequest struct {
	Secret json.RawMessage `json:"secret"`
}

func (s *Server) GetSecretStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.secrets.Status())
}

func (s *Server) SetSecret(c *gin.Context) {
	var req setSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, secret.ErrSecretRequired)
		return
	}

	// numbers, objects and null are rejected the same way as a missing value
	var value string
	if err := json.Unmarshal(req.Secret, &value); err != nil {
		AbortWithError(c, secret.ErrSecretRequired)
		return
	}

	status, err := s.secrets.Set(c.Request.Context(), value)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Webhook secret configured",
		"preview": status.Preview,
	})
}

func (s *Server) ClearSecret(c *gin.Context) {
	s.secrets.Clear(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Webhook secret cleared",
	})
}
