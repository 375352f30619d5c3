// Package protoerr collects the sentinel errors surfaced across the
// dispatch and session packages, mirroring how the teacher's inter
// package centralizes its ErrInvalidToken-style vars.
package protoerr

import "errors"

var (
	// ErrSessionResumed is returned by engine's Begin when the channel
	// resumed a cached session whose descriptor already matches the
	// device's current state, so no HELLO was sent.
	ErrSessionResumed = errors.New("protoerr: session resumed, hello skipped")

	// ErrMessageTimeout is returned when a wait for a specific message
	// type or an ack handler's deadline elapses.
	ErrMessageTimeout = errors.New("protoerr: message timeout")

	// ErrMissingRequestToken is returned when a FunctionCall or
	// VariableRequest arrives with a zero-length token.
	ErrMissingRequestToken = errors.New("protoerr: missing request token")

	// ErrHandshakeFailed is returned when Begin cannot complete the
	// hello/hello-response exchange.
	ErrHandshakeFailed = errors.New("protoerr: handshake failed")

	// Err4xx and Err5xx classify a reply's code by CoAP-style class.
	Err4xx = errors.New("protoerr: 4xx response")
	Err5xx = errors.New("protoerr: 5xx response")

	// ErrInternalServer is the translation of a RESET reply.
	ErrInternalServer = errors.New("protoerr: internal server error (reset)")

	// ErrDescribeOverflow marks a describe document that outgrew its
	// buffer. The orchestrator panics on this rather than truncate,
	// per the fatal-overflow contract.
	ErrDescribeOverflow = errors.New("protoerr: describe document overflowed buffer")
)
