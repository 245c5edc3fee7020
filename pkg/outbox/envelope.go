package outbox

import (
	"encoding/json"
	"time"
)

// EnvelopeVersion is the current envelope schema version.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event.
type ActorRef struct {
	Identity string `json:"identity"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
