package controllers

import (
	"net/http"

	"github.com/angelmondragon/stayregistry-backend/api/middleware"
	"github.com/angelmondragon/stayregistry-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// WhoAmI echoes the caller identity bound by the auth middleware.
func WhoAmI() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":    "private",
			"identity": middleware.CallerFromContext(r.Context()).String(),
		})
	}
}
