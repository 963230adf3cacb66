package realtime

const (
	EventAuth  = "auth"
	EventReady = "ready"
	EventError = "error"
	EventPing  = "ping"
	EventPong  = "pong"

	CodeSessionRevoked = "SESSION_REVOKED"
	CodeUnsupported    = "UNSUPPORTED"
)

// Event is the JSON envelope exchanged over the socket.
type Event struct {
	Type      string       `json:"type"`
	Code      string       `json:"code,omitempty"`
	Message   string       `json:"message,omitempty"`
	SessionID string       `json:"sessionId,omitempty"`
	Auth      *AuthPayload `json:"auth,omitempty"`
}

// AuthPayload is the handshake credential sent as the first frame by
// clients that cannot set an Authorization header.
type AuthPayload struct {
	Token string `json:"token"`
}
