// Package middleware holds request guards for the gateway's /v1 routes.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/newthinker/nurexia/internal/api/response"
	"github.com/newthinker/nurexia/internal/core"
)

// Credential headers accepted by APIKeyAuth.
const (
	APIKeyHeader = "X-API-Key"
	bearerPrefix = "Bearer "
)

// APIKeyAuth guards the gateway with a shared key. Clients send it as
// X-API-Key or, like OpenAI-style SDKs, as "Authorization: Bearer <key>".
// An empty gatewayKey leaves the routes open.
func APIKeyAuth(gatewayKey string) func(http.Handler) http.Handler {
	want := []byte(gatewayKey)
	return func(next http.Handler) http.Handler {
		if gatewayKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := clientKey(r)
			switch {
			case !ok:
				response.Error(w, http.StatusUnauthorized, core.NewError(core.ErrConfigMissing,
					"an API key is required (X-API-Key or Authorization: Bearer)", nil))
			case subtle.ConstantTimeCompare([]byte(got), want) != 1:
				response.Error(w, http.StatusUnauthorized, core.NewError(core.ErrConfigInvalid, "invalid API key", nil))
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// clientKey returns the key presented by the caller. X-API-Key wins when
// both headers are set.
func clientKey(r *http.Request) (string, bool) {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k, true
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(auth[len(bearerPrefix):]), true
	}
	return "", false
}
