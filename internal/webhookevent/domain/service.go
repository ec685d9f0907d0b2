package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/smallbiznis/webhookharness/internal/signature"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
	UnknownEventType = "unknown"
	LocalEventPrefix = "local_"
)

type IngestRequest struct {
	Payload []byte
	Headers http.Header
}

type IngestResult struct {
	EventID      string           `json:"eventId"`
	Event        *WebhookEvent    `json:"event"`
	Verification signature.Result `json:"verification"`
}

// ListRequest carries raw query values; the service normalizes them.
type ListRequest struct {
	EventType string `form:"eventType"`
	Commodity string `form:"commodity"`
	Limit     string `form:"limit"`
	Offset    string `form:"offset"`
}

type ListResponse struct {
	Events []WebhookEvent `json:"events"`
	Total  int64          `json:"total"`
}

type StatsResponse struct {
	Stats []EventTypeStat `json:"stats"`
}

// LiveEvent is the body of a new-event notification: the stored row with
// the payload decoded.
type LiveEvent struct {
	ID                 int64     `json:"id"`
	EventID            string    `json:"eventId"`
	EventType          string    `json:"eventType"`
	Commodity          *string   `json:"commodity"`
	Payload            any       `json:"payload"`
	Headers            any       `json:"headers"`
	Signature          *string   `json:"signature"`
	SignatureTimestamp *string   `json:"signatureTimestamp"`
	SignatureValid     bool      `json:"signatureValid"`
	SignatureError     *string   `json:"signatureError"`
	ReceivedAt         time.Time `json:"receivedAt"`
}

type Service interface {
	Ingest(context.Context, IngestRequest) (*IngestResult, error)
	List(context.Context, ListRequest) (*ListResponse, error)
	GetByID(context.Context, string) (*WebhookEvent, error)
	Stats(context.Context) (*StatsResponse, error)
	Clear(context.Context) error
}

var (
	ErrInvalidPayload = errors.New("invalid_payload")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidID      = errors.New("invalid_id")
)
