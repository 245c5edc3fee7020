package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

// ParseAssetID reads a positive asset id from the named URL parameter.
func ParseAssetID(r *http.Request, key string) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "asset id must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParseIdentityParam reads a caller identity from the named URL parameter.
func ParseIdentityParam(r *http.Request, key string) (types.Identity, error) {
	return ParseIdentity(strings.TrimSpace(chi.URLParam(r, key)), key)
}

// ParseIdentity validates an identity supplied in a path or body field.
func ParseIdentity(raw, field string) (types.Identity, error) {
	id, ok := types.ParseIdentity(raw)
	if !ok {
		return types.NoIdentity, pkgerrors.New(pkgerrors.CodeValidation, "invalid identity").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
