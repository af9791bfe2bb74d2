// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handlers. These provide more
// specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Provided guest token was invalid or expired.
	InvalidPlayerIDError  = 3002 // Player ID derived from the token was malformed.
	InvalidRoomIDError    = 3003 // Target room ID in the WS URL does not exist or is invalid.
)
