package handlers

import "strings"

// sessionCookieName is the cookie carrying the signed guest token.
const sessionCookieName = "session_token"

// extractCookieToken extracts a named cookie value from the "Cookie" header,
// or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// sanitizeName trims a display name and falls back when a client sends
// nothing usable.
func sanitizeName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}
