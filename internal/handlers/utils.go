package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// AuthCookie holds the session token.
const AuthCookie = "auth_token"

// tokenFromRequest finds a session token in the Authorization header, the auth cookie or
// the token query parameter, in that order.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(AuthCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
