package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/webhookharness/internal/observability/context"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
)

const defaultMaxBodyBytes int64 = 1 << 20

// ReceiveWebhook accepts one delivery. Deliveries with a bad or missing
// signature are still acknowledged; the outcome is stored on the event.
func (s *Server) ReceiveWebhook(c *gin.Context) {
	limit := s.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			AbortWithError(c, err)
			return
		}
		AbortWithError(c, fmt.Errorf("%w: read body: %v", ErrInvalidRequest, err))
		return
	}

	headers := c.Request.Header.Clone()
	if c.Request.Host != "" {
		headers.Set("Host", c.Request.Host)
	}

	res, err := s.events.Ingest(c.Request.Context(), domain.IngestRequest{
		Payload: body,
		Headers: headers,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obscontext.GinEventIDKey, res.EventID)
	if res.Event != nil {
		c.Set(obscontext.GinEventTypeKey, res.Event.EventType)
		c.Set(obscontext.GinVerifiedKey, res.Event.SignatureValid)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "received",
		"eventId": res.EventID,
	})
}
