package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateAsset         OutboxAggregateType = "asset"
	AggregateCreditAccount OutboxAggregateType = "credit_account"
	AggregateStay          OutboxAggregateType = "stay"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateAsset,
	AggregateCreditAccount,
	AggregateStay,
}

// IsValid reports whether the value matches the canonical aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType is the lifecycle fact an outbox row records. The value is
// also the routing key / channel suffix used by the publisher.
type OutboxEventType string

const (
	EventAssetMinted        OutboxEventType = "asset_minted"
	EventAssetTransferred   OutboxEventType = "asset_transferred"
	EventAssetURISet        OutboxEventType = "asset_uri_set"
	EventCreditMinted       OutboxEventType = "credit_minted"
	EventCreditApproved     OutboxEventType = "credit_approved"
	EventPropertyRegistered OutboxEventType = "property_registered"
	EventStayRequested      OutboxEventType = "stay_requested"
	EventStayApproved       OutboxEventType = "stay_approved"
	EventStayCheckedIn      OutboxEventType = "stay_checked_in"
	EventStayCheckedOut     OutboxEventType = "stay_checked_out"
	EventStaySettled        OutboxEventType = "stay_settled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventAssetMinted,
	EventAssetTransferred,
	EventAssetURISet,
	EventCreditMinted,
	EventCreditApproved,
	EventPropertyRegistered,
	EventStayRequested,
	EventStayApproved,
	EventStayCheckedIn,
	EventStayCheckedOut,
	EventStaySettled,
}

// IsValid reports whether the value matches the canonical event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
