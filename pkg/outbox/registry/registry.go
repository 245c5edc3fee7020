package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, routing key and payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	RoutingKey     string
	PayloadFactory func() interface{}
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

// Error implements error.
func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

// Unwrap exposes the wrapped error.
func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry builds the registry of every lifecycle fact the registry emits.
// The routing key of each event is its type.
func NewEventRegistry() *EventRegistry {
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}

	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventAssetMinted,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetMintedEvent{} },
		},
		{
			EventType:      enums.EventAssetTransferred,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetTransferredEvent{} },
		},
		{
			EventType:      enums.EventAssetURISet,
			AggregateType:  enums.AggregateAsset,
			PayloadFactory: func() interface{} { return &payloads.AssetURISetEvent{} },
		},
		{
			EventType:      enums.EventCreditMinted,
			AggregateType:  enums.AggregateCreditAccount,
			PayloadFactory: func() interface{} { return &payloads.CreditMintedEvent{} },
		},
		{
			EventType:      enums.EventCreditApproved,
			AggregateType:  enums.AggregateCreditAccount,
			PayloadFactory: func() interface{} { return &payloads.CreditApprovedEvent{} },
		},
	} {
		reg.register(desc)
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventPropertyRegistered,
			AggregateType:  enums.AggregateStay,
			PayloadFactory: func() interface{} { return &payloads.PropertyRegisteredEvent{} },
		},
		{
			EventType:      enums.EventStayRequested,
			AggregateType:  enums.AggregateStay,
			PayloadFactory: func() interface{} { return &payloads.StayRequestedEvent{} },
		},
		{
			EventType:      enums.EventStayApproved,
			AggregateType:  enums.AggregateStay,
			PayloadFactory: func() interface{} { return &payloads.StayApprovedEvent{} },
		},
		{
			EventType:      enums.EventStayCheckedIn,
			AggregateType:  enums.AggregateStay,
			PayloadFactory: func() interface{} { return &payloads.StayCheckedInEvent{} },
		},
		{
			EventType:      enums.EventStayCheckedOut,
			AggregateType:  enums.AggregateStay,
			PayloadFactory: func() interface{} { return &payloads.StayCheckedOutEvent{} },
		},
		{
			EventType:      enums.EventStaySettled,
			AggregateType:  enums.AggregateStay,
			PayloadFactory: func() interface{} { return &payloads.StaySettledEvent{} },
		},
	} {
		reg.register(desc)
	}

	return reg
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	if desc.RoutingKey == "" {
		desc.RoutingKey = string(desc.EventType)
	}
	r.entries[desc.EventType] = desc
}

// Descriptor returns the registered descriptor for eventType.
func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	desc, ok := r.entries[eventType]
	return desc, ok
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == "" {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
