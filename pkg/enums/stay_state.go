package enums

import "fmt"

// StayState is the position of a stay record in its booking cycle.
type StayState string

const (
	StayStateRegistered StayState = "registered"
	StayStateRequested  StayState = "requested"
	StayStateApproved   StayState = "approved"
	StayStateCheckedIn  StayState = "checked_in"
	// StayStateSettled only exists inside the check-out transaction; the
	// record is reset to registered before commit.
	StayStateSettled StayState = "settled"
)

var validStayStates = []StayState{
	StayStateRegistered,
	StayStateRequested,
	StayStateApproved,
	StayStateCheckedIn,
	StayStateSettled,
}

// IsValid reports whether the value matches a known stay state.
func (s StayState) IsValid() bool {
	for _, candidate := range validStayStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStayState converts raw input into StayState.
func ParseStayState(value string) (StayState, error) {
	for _, candidate := range validStayStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stay state %q", value)
}
