// Package channel defines the Channel contract: the secure, framed
// transport with session resumption that the dispatch and session
// packages are built against. It is an external collaborator per the
// spec — only the interface lives here; concrete transports (see
// internal/memchannel, internal/store/sqlitesession) implement it.
package channel

import (
	"github.com/nhirsama/deviceproto/internal/descriptor"
	"github.com/nhirsama/deviceproto/internal/wire"
)

// EstablishResult reports how Establish concluded.
type EstablishResult int

const (
	FullHandshake EstablishResult = iota
	SessionResumed
)

// SessionCommand is the opaque session-data command surface a Channel
// exposes for the session orchestrator to drive session lifecycle
// without the engine ever touching session bytes directly.
type SessionCommand int

const (
	SaveSession SessionCommand = iota
	LoadSession
	MoveSession
	DiscardSession
)

// Channel is the framed secure transport. Send and Receive borrow
// buffers the caller must not retain past the call. Receive returns a
// nil message (and nil error) when there is nothing to read this tick
// — the event loop treats that as "run idle work", not an error.
type Channel interface {
	// Establish performs the transport-level handshake or session
	// resumption and reports which one happened.
	Establish() (EstablishResult, error)

	// Send transmits msg. The returned id is the id the channel
	// assigned it (ids may be assigned lazily, e.g. for describe posts
	// built with id 0).
	Send(msg *wire.Message) (assignedID uint16, err error)

	// Receive polls for the next inbound message without blocking
	// indefinitely; it returns (nil, nil) if nothing arrived this tick.
	Receive() (*wire.Message, error)

	// SessionCommand issues one of the opaque session-data commands.
	SessionCommand(cmd SessionCommand) error

	// CachedAppStateDescriptor returns the cloud's last-known
	// descriptor for this session, if the channel has one cached (only
	// meaningful right after a SessionResumed Establish).
	CachedAppStateDescriptor() (descriptor.AppStateDescriptor, bool)

	// NotifyEstablished informs the channel the upper protocol
	// considers the session fully established (post-HELLO or
	// post-resume-fast-path).
	NotifyEstablished()
}
