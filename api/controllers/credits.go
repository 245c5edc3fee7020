package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/stayregistry-backend/api/middleware"
	"github.com/angelmondragon/stayregistry-backend/api/responses"
	"github.com/angelmondragon/stayregistry-backend/api/validators"
	"github.com/angelmondragon/stayregistry-backend/internal/credits"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type mintCreditsRequest struct {
	To     string `json:"to" validate:"required,identity"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

type approveCreditsRequest struct {
	Spender string `json:"spender" validate:"required,identity"`
	Amount  int64  `json:"amount" validate:"gte=0"`
}

type balanceResponse struct {
	Identity string `json:"identity"`
	Balance  int64  `json:"balance"`
}

type allowanceResponse struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Allowance int64  `json:"allowance"`
}

type creditEntryResponse struct {
	ID        uint64                `json:"id"`
	Type      enums.CreditEntryType `json:"type"`
	Payer     types.Identity        `json:"payer,omitempty"`
	Payee     string                `json:"payee"`
	Spender   types.Identity        `json:"spender,omitempty"`
	Amount    int64                 `json:"amount"`
	Reference string                `json:"reference,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

// CreditMint issues new credits. Any authenticated caller may mint.
func CreditMint(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req mintCreditsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		to, err := validators.ParseIdentity(req.To, "to")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Mint(ctx, to, req.Amount, middleware.CallerFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, balanceResponse{Identity: to.String(), Balance: balance})
	}
}

// CreditApprove sets the caller's allowance for spender, replacing any
// previous value.
func CreditApprove(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req approveCreditsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		spender, err := validators.ParseIdentity(req.Spender, "spender")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		owner := middleware.CallerFromContext(ctx)
		if err := svc.Approve(ctx, owner, spender, req.Amount); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, allowanceResponse{Owner: owner.String(), Spender: spender.String(), Allowance: req.Amount})
	}
}

func CreditBalance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := validators.ParseIdentityParam(r, "identity")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		balance, err := svc.BalanceOf(ctx, identity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{Identity: identity.String(), Balance: balance})
	}
}

func CreditAllowance(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, err := validators.ParseIdentityParam(r, "owner")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		spender, err := validators.ParseIdentityParam(r, "spender")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		allowance, err := svc.Allowance(ctx, owner, spender)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, allowanceResponse{Owner: owner.String(), Spender: spender.String(), Allowance: allowance})
	}
}

func CreditSupply(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		supply, err := svc.TotalSupply(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"total_supply": supply})
	}
}

// CreditHistory lists the newest journal entries touching an identity.
func CreditHistory(svc credits.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, err := validators.ParseIdentityParam(r, "identity")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		entries, err := svc.History(ctx, identity, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		out := make([]creditEntryResponse, 0, len(entries))
		for _, entry := range entries {
			item := creditEntryResponse{
				ID:        entry.ID,
				Type:      entry.Type,
				Payer:     types.IdentityFromPtr(entry.Payer),
				Payee:     entry.Payee,
				Spender:   types.IdentityFromPtr(entry.Spender),
				Amount:    entry.Amount,
				CreatedAt: entry.CreatedAt,
			}
			if entry.Reference != nil {
				item.Reference = *entry.Reference
			}
			out = append(out, item)
		}
		responses.WriteSuccess(w, out)
	}
}
