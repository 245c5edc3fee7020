package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/stayregistry-backend/api/middleware"
	"github.com/angelmondragon/stayregistry-backend/api/responses"
	"github.com/angelmondragon/stayregistry-backend/api/validators"
	"github.com/angelmondragon/stayregistry-backend/internal/assets"
	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
)

type assetResponse struct {
	ID        uint64    `json:"id"`
	Owner     string    `json:"owner"`
	URI       string    `json:"uri"`
	CreatedAt time.Time `json:"created_at"`
}

type transferAssetRequest struct {
	To string `json:"to" validate:"required,identity"`
}

type setURIRequest struct {
	URI string `json:"uri" validate:"max=2048"`
}

type ownerAssetsResponse struct {
	Owner    string   `json:"owner"`
	Balance  int64    `json:"balance"`
	AssetIDs []uint64 `json:"asset_ids"`
}

func toAssetResponse(asset *models.Asset) assetResponse {
	return assetResponse{
		ID:        asset.ID,
		Owner:     asset.Owner,
		URI:       asset.URI,
		CreatedAt: asset.CreatedAt,
	}
}

// AssetMint mints a new property asset owned by the caller.
func AssetMint(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		asset, err := svc.Mint(ctx, middleware.CallerFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toAssetResponse(asset))
	}
}

func AssetGet(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		asset, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAssetResponse(asset))
	}
}

func AssetTransfer(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req transferAssetRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		to, err := validators.ParseIdentity(req.To, "to")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		caller := middleware.CallerFromContext(ctx)
		if err := svc.Transfer(ctx, id, to, caller); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		asset, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAssetResponse(asset))
	}
}

func AssetSetURI(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := validators.ParseAssetID(r, "assetId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var req setURIRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.SetURI(ctx, id, req.URI, middleware.CallerFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		asset, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toAssetResponse(asset))
	}
}

// OwnerAssets lists the asset ids held by an identity in enumeration order.
func OwnerAssets(svc assets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, err := validators.ParseIdentityParam(r, "identity")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		balance, err := svc.BalanceOf(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ids, err := svc.ListByOwner(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ownerAssetsResponse{
			Owner:    owner.String(),
			Balance:  balance,
			AssetIDs: ids,
		})
	}
}
