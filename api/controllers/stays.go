package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/stayregistry-backend/api/middleware"
	"github.com/angelmondragon/stayregistry-backend/api/responses"
	"github.com/angelmondragon/stayregistry-backend/api/validators"
	"github.com/angelmondragon/stayregistry-backend/internal/bookings"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

type registerPropertyRequest struct {
	Price int64 `json:"price" validate:"gte=0"`
}

// The window is not validated here; the booking registry owns that rule.
type requestStayRequest struct {
	CheckIn  time.Time `json:"check_in" validate:"required"`
	CheckOut time.Time `json:"check_out" validate:"required"`
}

type stayAction func(ctx context.Context, assetID uint64, caller types.Identity) error

func StayGet(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		data, err := svc.StayData(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}

func StayRegister(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req registerPropertyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.RegisterProperty(ctx, id, req.Price, middleware.CallerFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeStay(ctx, svc, logg, w, id)
	}
}

func StayRequest(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req requestStayRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.Request(ctx, id, req.CheckIn, req.CheckOut, middleware.CallerFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeStay(ctx, svc, logg, w, id)
	}
}

func StayApprove(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return stayTransition(svc, svc.ApproveRequest, logg)
}

func StayCheckIn(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return stayTransition(svc, svc.CheckIn, logg)
}

// StayCheckOut settles the stay. A 402 leaves the stay checked in; the guest
// may fund the account and retry.
func StayCheckOut(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return stayTransition(svc, svc.CheckOut, logg)
}

func stayTransition(svc bookings.Service, action stayAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithAssetID(ctx, id)
		}
		if err := action(ctx, id, middleware.CallerFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeStay(ctx, svc, logg, w, id)
	}
}

func writeStay(ctx context.Context, svc bookings.Service, logg *logger.Logger, w http.ResponseWriter, id uint64) {
	data, err := svc.StayData(ctx, id)
	if err != nil {
		responses.WriteError(ctx, logg, w, err)
		return
	}
	responses.WriteSuccess(w, data)
}
