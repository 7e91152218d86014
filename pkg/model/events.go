package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted on the lifecycle stream.
const (
	EventRFQCreated   = "rfq.created"
	EventRFQFilled    = "rfq.filled"
	EventRFQExpired   = "rfq.expired"
	EventRFQCancelled = "rfq.cancelled"
)

// Envelope is the canonical event wrapper published to NATS. Downstream
// consumers (the settlement keeper in particular) route on EventType.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	RFQID         string          `json:"rfq_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}
