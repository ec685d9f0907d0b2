// Package domain contains the persisted record of received webhook deliveries.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent stores one delivery, valid or not.
type WebhookEvent struct {
	ID                 int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID            string         `json:"eventId" gorm:"column:event_id;type:varchar(255);not null;uniqueIndex:ux_webhook_events_event_id"`
	EventType          string         `json:"eventType" gorm:"column:event_type;type:varchar(255);not null;index:idx_webhook_events_event_type"`
	Commodity          *string        `json:"commodity" gorm:"column:commodity;type:varchar(255);index:idx_webhook_events_commodity"`
	Payload            string         `json:"payload" gorm:"column:payload;type:text;not null"`
	Headers            datatypes.JSON `json:"headers" gorm:"column:headers;not null"`
	Signature          *string        `json:"signature" gorm:"column:signature;type:text"`
	SignatureTimestamp *string        `json:"signatureTimestamp" gorm:"column:signature_timestamp;type:varchar(64)"`
	SignatureValid     bool           `json:"signatureValid" gorm:"column:signature_valid;not null"`
	SignatureError     *string        `json:"signatureError" gorm:"column:signature_error;type:text"`
	ReceivedAt         time.Time      `json:"receivedAt" gorm:"column:received_at;not null;index:idx_webhook_events_received_at"`
}

// TableName sets the database table name.
func (WebhookEvent) TableName() string { return "webhook_events" }

// EventTypeStat aggregates stored deliveries for one event type.
type EventTypeStat struct {
	EventType       string    `json:"eventType"`
	Count           int64     `json:"count"`
	ValidSignatures int64     `json:"validSignatures"`
	LastReceived    time.Time `json:"lastReceived"`
}

// QueryFilter narrows a listing. Empty strings do not filter.
type QueryFilter struct {
	EventType string
	Commodity string
	Limit     int
	Offset    int
}
