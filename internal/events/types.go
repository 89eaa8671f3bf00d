package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Subjects published by the catalog.
const (
	MediaDeleted     = "catalog.media.deleted"
	CleanupRequested = "catalog.cleanup.requested"
	CleanupCompleted = "catalog.cleanup.completed"
	CleanupFailed    = "catalog.cleanup.failed"
)

// SubjectPrefix covers every catalog subject.
const SubjectPrefix = "catalog."

// Envelope is the wire form of every event regardless of transport.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Aggregate  string          `json:"aggregate_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope wraps payload for publishing.
func NewEnvelope(eventType, aggregateID string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		Aggregate:  aggregateID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

// MustEnvelope is NewEnvelope for payloads that always marshal.
func MustEnvelope(eventType, aggregateID string, payload interface{}) *Envelope {
	env, err := NewEnvelope(eventType, aggregateID, payload)
	if err != nil {
		panic(err)
	}
	return env
}

func (e *Envelope) EventType() string   { return e.Type }
func (e *Envelope) Timestamp() int64    { return e.OccurredAt.UnixNano() }
func (e *Envelope) AggregateID() string { return e.Aggregate }

// Decode unmarshals the payload into out.
func (e *Envelope) Decode(out interface{}) error {
	if err := json.Unmarshal(e.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// MediaDeletedPayload is published after a document is removed.
type MediaDeletedPayload struct {
	TMDBID      int      `json:"tmdb_id"`
	ShardIndex  int      `json:"shard_index"`
	MediaType   string   `json:"media_type"`
	Title       string   `json:"title"`
	CleanupRefs []string `json:"cleanup_refs,omitempty"`
}

// CleanupRequestedPayload announces newly enqueued cleanup jobs.
type CleanupRequestedPayload struct {
	JobIDs []string `json:"job_ids"`
}

// CleanupResultPayload reports the outcome of one cleanup job.
type CleanupResultPayload struct {
	JobID    string `json:"job_id"`
	Ref      string `json:"ref"`
	ItemKey  string `json:"item_key"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}
