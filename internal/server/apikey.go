package server

import (
	"net/http"
	"strings"

	"github.com/treefix50/watchtrack/internal/auth"
)

const (
	apiKeyHeader = "X-API-Key"
	// browsers cannot set headers on WebSocket handshakes
	apiKeyQuery = "api_key"
)

// requireAPIKey rejects requests without a valid key. A nil verifier lets
// every request through.
func requireAPIKey(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if v == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Verify(presentedKey(r)); err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="watchtrack"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get(apiKeyQuery)
}
