package billing

import (
	"context"
	"time"
)

// Event log outcomes
const (
	OutcomeApplied    = "applied"
	OutcomeUnresolved = "unresolved"
	OutcomeStale      = "stale"
	OutcomeIgnored    = "ignored"
	OutcomeFailed     = "failed"
)

// EventRecord is one audited webhook delivery
type EventRecord struct {
	EventID    string    `json:"eventId"`
	Type       string    `json:"type"`
	CustomerID string    `json:"customerId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// EventLog stores delivery audit records. A redelivery overwrites the
// previous record for the same event id.
type EventLog interface {
	Record(ctx context.Context, rec *EventRecord) error
	Get(ctx context.Context, eventID string) (*EventRecord, error)
	List(ctx context.Context, limit, offset int) ([]*EventRecord, error)
}

// Archiver stores raw verified payloads
type Archiver interface {
	Archive(ctx context.Context, eventID string, receivedAt time.Time, payload []byte) error
}
