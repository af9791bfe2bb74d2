// internal/handlers/session.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/feliskatz/ratatat/internal/auth"
	"github.com/google/uuid"
)

// EnsureGuest resolves the caller to a guest identity. A valid session cookie
// wins; otherwise a fresh guest id is minted, signed and set as a cookie on
// the response. fallbackName is embedded in freshly minted tokens.
//
// Must run before any WebSocket upgrade, since response headers cannot be
// written once the connection is hijacked.
func EnsureGuest(w http.ResponseWriter, r *http.Request, fallbackName string) (uuid.UUID, string, error) {
	cookieHeader := r.Header.Get("Cookie")
	if token := extractCookieToken(cookieHeader, sessionCookieName); token != "" {
		idStr, name, err := auth.VerifyToken(token)
		if err == nil {
			id, parseErr := uuid.Parse(idStr)
			if parseErr != nil {
				return uuid.Nil, "", fmt.Errorf("invalid player id in token: %w", parseErr)
			}
			if name == "" {
				name = fallbackName
			}
			return id, name, nil
		}
		// a stale or foreign token just means a fresh identity below
	}

	id := uuid.New()
	token, err := auth.IssueToken(id.String(), fallbackName)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to issue guest token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return id, fallbackName, nil
}
