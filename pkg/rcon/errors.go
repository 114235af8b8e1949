package rcon

import "errors"

// Failure taxonomy for the protocol engine. Codec and transport failures
// are fatal to the session that produced them; retry policy belongs to
// callers.
var (
	// ErrInvalidPayload rejects a body the frame format cannot carry.
	ErrInvalidPayload = errors.New("rcon: invalid payload")

	// ErrInvalidFrame flags structurally broken bytes on the wire.
	ErrInvalidFrame = errors.New("rcon: invalid frame")

	// ErrIncomplete reports that a buffer ends mid-frame. Codec level
	// only: stream readers treat it as "read more and retry".
	ErrIncomplete = errors.New("rcon: incomplete frame")

	// ErrTimeout reports that a response did not terminate within the
	// session's time budget.
	ErrTimeout = errors.New("rcon: timeout awaiting response")

	// ErrConnectionClosed reports a peer hangup, or a session already
	// torn down by an earlier fatal error.
	ErrConnectionClosed = errors.New("rcon: connection closed")

	// ErrAuthenticationFailed reports a rejected password.
	ErrAuthenticationFailed = errors.New("rcon: authentication failed")

	// ErrNotAuthenticated rejects commands on a session that never
	// completed the handshake.
	ErrNotAuthenticated = errors.New("rcon: not authenticated")
)
