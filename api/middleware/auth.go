package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/stayregistry-backend/api/responses"
	pkgAuth "github.com/angelmondragon/stayregistry-backend/pkg/auth"
	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
)

// Auth validates a bearer token and binds its identity to the request context
// as the caller of every registry operation.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthenticated, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthenticated, err, "invalid token"))
				return
			}

			caller := claims.Identity()
			ctx := WithCaller(r.Context(), caller)
			if logg != nil {
				ctx = logg.WithCaller(ctx, caller.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
