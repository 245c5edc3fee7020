package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/stayregistry-backend/api/responses"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/stayregistry-backend/pkg/redis"
)

// RateLimiterStore is satisfied by *redis.Client.
type RateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// RateLimitPolicy is a fixed-window budget per client IP and per caller.
type RateLimitPolicy struct {
	Name        string
	Window      time.Duration
	IPLimit     int
	CallerLimit int
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.CallerLimit > 0)
}

func (p RateLimitPolicy) name() string {
	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" {
		return name
	}
	return "api"
}

type rateDimension struct {
	scope string
	value string
	limit int
}

// RateLimit throttles requests once either counter passes its limit. It must
// run after Auth so the caller identity is bound. A nil store disables it.
func RateLimit(policy RateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			dims := []rateDimension{{scope: "ip", value: clientIP(r), limit: policy.IPLimit}}
			if caller := CallerFromContext(ctx); !caller.IsZero() {
				// Identities are free-form; hash them so keys stay bounded.
				dims = append(dims, rateDimension{scope: "caller", value: hashValue(caller.String()), limit: policy.CallerLimit})
			}

			for _, dim := range dims {
				if dim.limit <= 0 || dim.value == "" {
					continue
				}
				key := pkgredis.Key("ratelimit", policy.name(), dim.scope, dim.value)
				count, err := store.IncrWithTTL(ctx, key, policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(dim.limit) {
					rejectRateLimited(ctx, logg, w, policy, dim, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, dim rateDimension, count int64) {
	logg.Warn(logg.WithFields(ctx, map[string]any{
		"policy":         policy.name(),
		"scope":          dim.scope,
		"attempts":       count,
		"limit":          dim.limit,
		"window_seconds": int(policy.Window.Seconds()),
	}), "rate_limit.blocked")

	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimited, "rate limit exceeded").
		WithDetails(map[string]any{"scope": dim.scope, "limit": dim.limit}))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
