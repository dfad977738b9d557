// ABOUTME: HTTP middleware for init-data authentication on task endpoints
// ABOUTME: Extracts "tma <initData>" from the Authorization header and adds the identity to context

package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// SchemeTMA is the Authorization scheme carrying raw init data.
const SchemeTMA = "tma"

// extractInitData extracts raw init data from the Authorization header.
// Returns the init data and an error message (empty if successful).
func extractInitData(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	scheme, value, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, SchemeTMA) {
		return "", "invalid authorization header format"
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "empty init data"
	}
	return value, ""
}

// RequireInitData creates an HTTP middleware that authenticates every request with gw.
// Requests without valid init data never reach next.
func RequireInitData(gw *Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, errMsg := extractInitData(r.Header.Get("Authorization"))
			if errMsg != "" {
				w.Header().Set("WWW-Authenticate", SchemeTMA)
				writeJSONError(w, http.StatusUnauthorized, errMsg)
				return
			}

			identity, err := gw.Authenticate(r.Context(), raw)
			if err != nil {
				status := HTTPStatus(err)
				if status == http.StatusServiceUnavailable {
					w.Header().Set("Retry-After", "1")
				}
				writeJSONError(w, status, PublicMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
