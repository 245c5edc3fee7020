package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/stayregistry-backend/api/responses"
	"github.com/angelmondragon/stayregistry-backend/api/validators"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
)

// EventsList serves the polling feed: ?after=<sequence>&limit=&type=.
func EventsList(feed *outbox.Feed, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		after, err := validators.ParseQueryUint64(r, "after")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", outbox.DefaultFeedLimit, 1, outbox.MaxFeedLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var eventType *enums.OutboxEventType
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			parsed, err := enums.ParseOutboxEventType(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown event type").
					WithDetails(map[string]any{"field": "type"}))
				return
			}
			eventType = &parsed
		}

		page, err := feed.List(ctx, after, limit, eventType)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events"))
			return
		}
		responses.WriteSuccess(w, page)
	}
}
