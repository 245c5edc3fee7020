package bookings

import (
	"fmt"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
)

// Operation names a booking registry call; the values double as metric labels.
type Operation string

const (
	OpRegister Operation = "stay_register"
	OpRequest  Operation = "stay_request"
	OpApprove  Operation = "stay_approve"
	OpCheckIn  Operation = "stay_check_in"
	OpCheckOut Operation = "stay_check_out"
	opReset    Operation = "stay_reset"
)

type transition struct {
	from enums.StayState
	to   enums.StayState
}

// transitions is the booking cycle:
// registered -> requested -> approved -> checked_in -> settled -> registered.
var transitions = map[Operation]transition{
	OpRequest:  {from: enums.StayStateRegistered, to: enums.StayStateRequested},
	OpApprove:  {from: enums.StayStateRequested, to: enums.StayStateApproved},
	OpCheckIn:  {from: enums.StayStateApproved, to: enums.StayStateCheckedIn},
	OpCheckOut: {from: enums.StayStateCheckedIn, to: enums.StayStateSettled},
	opReset:    {from: enums.StayStateSettled, to: enums.StayStateRegistered},
}

// requireState fails with WRONG_STATE unless record can take op.
func requireState(record *models.StayRecord, op Operation) error {
	t, ok := transitions[op]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no transition for %s", op))
	}
	if record.State != t.from {
		return pkgerrors.New(pkgerrors.CodeWrongState, fmt.Sprintf("%s requires state %s", op, t.from)).
			WithDetails(map[string]any{"state": record.State, "required": t.from})
	}
	return nil
}

// advance moves record along op's edge. Callers check requireState first.
func advance(record *models.StayRecord, op Operation) {
	record.State = transitions[op].to
}
