package bookings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/internal/credits"
	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

// StayData is the public view of a stay record. Absent guests and window
// are omitted.
type StayData struct {
	AssetID           uint64          `json:"asset_id"`
	Price             int64           `json:"price"`
	TotalStaysSettled int64           `json:"total_stays_settled"`
	GuestRequested    types.Identity  `json:"guest_requested,omitempty"`
	GuestApproved     types.Identity  `json:"guest_approved,omitempty"`
	GuestCheckedIn    types.Identity  `json:"guest_checked_in,omitempty"`
	State             enums.StayState `json:"state"`
	CheckIn           *time.Time      `json:"check_in,omitempty"`
	CheckOut          *time.Time      `json:"check_out,omitempty"`
}

// Service is the booking registry.
type Service interface {
	RegisterProperty(ctx context.Context, assetID uint64, price int64, caller types.Identity) error
	Request(ctx context.Context, assetID uint64, checkIn, checkOut time.Time, caller types.Identity) error
	ApproveRequest(ctx context.Context, assetID uint64, caller types.Identity) error
	CheckIn(ctx context.Context, assetID uint64, caller types.Identity) error
	CheckOut(ctx context.Context, assetID uint64, caller types.Identity) error
	StayData(ctx context.Context, assetID uint64) (*StayData, error)
	Identity() types.Identity
}

type assetRegistry interface {
	OwnerOfTx(ctx context.Context, tx *gorm.DB, id uint64) (types.Identity, error)
}

type creditLedger interface {
	SettleTx(ctx context.Context, tx *gorm.DB, input credits.SettleInput) error
}

type txRunner interface {
	Atomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the booking registry collaborators. Assets and
// Credits must already be constructed.
type ServiceParams struct {
	Repo     Repository
	Assets   assetRegistry
	Credits  creditLedger
	TxRunner txRunner
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Metrics  *metrics.RegistryMetrics
	Identity types.Identity
}

type service struct {
	repo     Repository
	assets   assetRegistry
	credits  creditLedger
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	metrics  *metrics.RegistryMetrics
	identity types.Identity
}

// NewService wires the booking registry on top of the asset and credit registries.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("stay repository required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset registry required")
	}
	if params.Credits == nil {
		return nil, fmt.Errorf("credit ledger required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Identity.IsZero() {
		return nil, fmt.Errorf("booking registry identity required")
	}
	return &service{
		repo:     params.Repo,
		assets:   params.Assets,
		credits:  params.Credits,
		tx:       params.TxRunner,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		identity: params.Identity,
	}, nil
}

func (s *service) Identity() types.Identity {
	return s.identity
}

// RegisterProperty lists an asset for stays, or re-prices an idle listing.
// The settled-stay counter survives re-registration.
func (s *service) RegisterProperty(ctx context.Context, assetID uint64, price int64, caller types.Identity) (err error) {
	defer s.observe(OpRegister, time.Now(), &err)

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		owner, err := s.assets.OwnerOfTx(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if caller.IsZero() || caller != owner {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the owner can register a property")
		}
		if price < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}

		repo := s.repo.WithTx(tx)
		record, err := repo.FindByAssetID(ctx, assetID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stay record")
		}
		if record == nil {
			record = &models.StayRecord{AssetID: assetID, Price: price, State: enums.StayStateRegistered}
			if err := repo.Create(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create stay record")
			}
		} else {
			if record.State != enums.StayStateRegistered {
				return pkgerrors.New(pkgerrors.CodeAlreadyRegistered, "a booking cycle is in progress").
					WithDetails(map[string]any{"state": record.State})
			}
			record.Price = price
			if err := repo.Save(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stay record")
			}
		}

		return s.emit(ctx, tx, enums.EventPropertyRegistered, assetID, caller, payloads.PropertyRegisteredEvent{
			AssetID: assetID,
			Owner:   owner.String(),
			Price:   price,
		})
	})
}

func (s *service) Request(ctx context.Context, assetID uint64, checkIn, checkOut time.Time, caller types.Identity) (err error) {
	defer s.observe(OpRequest, time.Now(), &err)

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.loadTx(ctx, repo, assetID)
		if err != nil {
			return err
		}
		if err := requireState(record, OpRequest); err != nil {
			return err
		}
		if !checkIn.Before(checkOut) {
			return pkgerrors.New(pkgerrors.CodeInvalidWindow, "check-in must be before check-out")
		}
		owner, err := s.assets.OwnerOfTx(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if caller.IsZero() || caller == owner {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "owners cannot request their own property")
		}

		in, out := checkIn.UTC(), checkOut.UTC()
		record.GuestRequested = caller.Ptr()
		record.CheckInAt = &in
		record.CheckOutAt = &out
		advance(record, OpRequest)
		if err := repo.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save stay request")
		}

		return s.emit(ctx, tx, enums.EventStayRequested, assetID, caller, payloads.StayRequestedEvent{
			AssetID:  assetID,
			Guest:    caller.String(),
			CheckIn:  in,
			CheckOut: out,
		})
	})
}

// ApproveRequest is reserved to the current owner, who must not be the
// requesting guest (possible after a mid-cycle transfer).
func (s *service) ApproveRequest(ctx context.Context, assetID uint64, caller types.Identity) (err error) {
	defer s.observe(OpApprove, time.Now(), &err)

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.loadTx(ctx, repo, assetID)
		if err != nil {
			return err
		}
		if err := requireState(record, OpApprove); err != nil {
			return err
		}
		owner, err := s.assets.OwnerOfTx(ctx, tx, assetID)
		if err != nil {
			return err
		}
		if caller.IsZero() || caller != owner {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the owner can approve a request")
		}
		guest := types.IdentityFromPtr(record.GuestRequested)
		if caller == guest {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "the requesting guest cannot approve their own stay")
		}

		record.GuestApproved = guest.Ptr()
		advance(record, OpApprove)
		if err := repo.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save stay approval")
		}

		return s.emit(ctx, tx, enums.EventStayApproved, assetID, caller, payloads.StayApprovedEvent{
			AssetID: assetID,
			Owner:   owner.String(),
			Guest:   guest.String(),
		})
	})
}

func (s *service) CheckIn(ctx context.Context, assetID uint64, caller types.Identity) (err error) {
	defer s.observe(OpCheckIn, time.Now(), &err)

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.loadTx(ctx, repo, assetID)
		if err != nil {
			return err
		}
		if err := requireState(record, OpCheckIn); err != nil {
			return err
		}
		if caller.IsZero() || caller != types.IdentityFromPtr(record.GuestApproved) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the approved guest can check in")
		}

		advance(record, OpCheckIn)
		if err := repo.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save check-in")
		}

		return s.emit(ctx, tx, enums.EventStayCheckedIn, assetID, caller, payloads.StayCheckedInEvent{
			AssetID: assetID,
			Guest:   caller.String(),
		})
	})
}

// CheckOut settles the stay price from the guest to the current owner and
// closes the cycle in one transaction. A failed settlement leaves the record
// checked in so the guest can fund the account and retry.
func (s *service) CheckOut(ctx context.Context, assetID uint64, caller types.Identity) (err error) {
	defer s.observe(OpCheckOut, time.Now(), &err)

	var settled int64
	err = s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := s.loadTx(ctx, repo, assetID)
		if err != nil {
			return err
		}
		if err := requireState(record, OpCheckOut); err != nil {
			return err
		}
		guest := types.IdentityFromPtr(record.GuestApproved)
		if caller.IsZero() || caller != guest {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the checked-in guest can check out")
		}
		owner, err := s.assets.OwnerOfTx(ctx, tx, assetID)
		if err != nil {
			return err
		}

		cycle := record.TotalStaysSettled + 1
		if err := s.credits.SettleTx(ctx, tx, credits.SettleInput{
			Payer:     guest,
			Spender:   s.identity,
			Payee:     owner,
			Amount:    record.Price,
			Reference: fmt.Sprintf("stay:%d:%d", assetID, cycle),
		}); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed) {
				logCtx := s.logg.WithAssetID(s.logg.WithCaller(ctx, caller.String()), assetID)
				s.logg.Warn(logCtx, "stay settlement failed")
			}
			return err
		}

		checkIn, checkOut := record.CheckInAt, record.CheckOutAt
		advance(record, OpCheckOut)
		record.TotalStaysSettled = cycle
		if err := s.emit(ctx, tx, enums.EventStayCheckedOut, assetID, caller, payloads.StayCheckedOutEvent{
			AssetID:  assetID,
			Guest:    guest.String(),
			CheckIn:  derefTime(checkIn),
			CheckOut: derefTime(checkOut),
		}); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, enums.EventStaySettled, assetID, caller, payloads.StaySettledEvent{
			AssetID:           assetID,
			Payer:             guest.String(),
			Payee:             owner.String(),
			Amount:            record.Price,
			TotalStaysSettled: cycle,
		}); err != nil {
			return err
		}

		resetCycle(record)
		if err := repo.Save(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save check-out")
		}
		settled = record.Price
		return nil
	})
	if err == nil {
		s.metrics.AddSettledCredits(settled)
	}
	return err
}

func (s *service) StayData(ctx context.Context, assetID uint64) (*StayData, error) {
	record, err := s.loadTx(ctx, s.repo, assetID)
	if err != nil {
		return nil, err
	}
	data := &StayData{
		AssetID:           record.AssetID,
		Price:             record.Price,
		TotalStaysSettled: record.TotalStaysSettled,
		GuestRequested:    types.IdentityFromPtr(record.GuestRequested),
		GuestApproved:     types.IdentityFromPtr(record.GuestApproved),
		State:             record.State,
		CheckIn:           record.CheckInAt,
		CheckOut:          record.CheckOutAt,
	}
	if record.State == enums.StayStateCheckedIn {
		data.GuestCheckedIn = data.GuestApproved
	}
	return data, nil
}

// resetCycle returns a settled record to registered with no guests or window.
func resetCycle(record *models.StayRecord) {
	advance(record, opReset)
	record.GuestRequested = nil
	record.GuestApproved = nil
	record.CheckInAt = nil
	record.CheckOutAt = nil
}

func (s *service) loadTx(ctx context.Context, repo Repository, assetID uint64) (*models.StayRecord, error) {
	record, err := repo.FindByAssetID(ctx, assetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stay record")
	}
	if record == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "property is not registered")
	}
	return record, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, assetID uint64, actor types.Identity, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateStay,
		AggregateID:   strconv.FormatUint(assetID, 10),
		Actor:         outbox.Actor(actor.String()),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) observe(op Operation, start time.Time, err *error) {
	s.metrics.ObserveOperation(string(op), metrics.Outcome(*err), time.Since(start))
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
