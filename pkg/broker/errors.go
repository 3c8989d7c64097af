package broker

import "errors"

// The benign-race family: callers log these and answer with a uniform
// bodyless response so an unauthenticated prober cannot tell session states
// apart.
var (
	ErrUnknownSession  = errors.New("unknown session id")
	ErrAlreadyClosed   = errors.New("session already closed")
	ErrNoActiveChannel = errors.New("no active channel for session")
	ErrChannelOpen     = errors.New("channel already open for session")
	ErrNonceMismatch   = errors.New("nonce mismatch")
)
