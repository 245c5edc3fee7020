package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Identity types.Identity
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. The caller
// identity travels in the subject claim.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
}

// Identity returns the caller identity carried by the token.
func (c *AccessTokenClaims) Identity() types.Identity {
	if c == nil {
		return types.NoIdentity
	}
	id, ok := types.ParseIdentity(c.Subject)
	if !ok {
		return types.NoIdentity
	}
	return id
}
