// Package ackreg tracks outbound confirmable messages awaiting a
// reply and fires exactly one of success/error/timeout per entry,
// mirroring the teacher's device_manager message_queue in spirit
// (a sync-free, caller-driven map keyed by an id) but keyed by
// message id instead of device uuid and clocked by an externally
// supplied millisecond delta rather than wall time.
package ackreg

import "github.com/nhirsama/deviceproto/internal/protoerr"

type handler struct {
	deadlineMs int64
	onSuccess  func()
	onError    func(error)
}

// Registry is a mapping from outbound message id to a pending
// handler. It is not safe for concurrent use — the engine's
// single-threaded cooperative model means it is only ever touched
// from the event loop goroutine.
type Registry struct {
	pending map[uint16]handler
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{pending: make(map[uint16]handler)}
}

// Register records a pending handler for msgID. Registering a second
// handler for an id already pending replaces the first without firing
// it — callers are expected not to do this; the session orchestrator
// enforces "at most one outstanding describe of each kind" at a
// higher level.
func (r *Registry) Register(msgID uint16, deadlineMs int64, onSuccess func(), onError func(error)) {
	r.pending[msgID] = handler{deadlineMs: deadlineMs, onSuccess: onSuccess, onError: onError}
}

// Update decrements every pending deadline by elapsedMs; any handler
// whose deadline reaches zero or below fires onError(ErrMessageTimeout)
// and is removed.
func (r *Registry) Update(elapsedMs int64) {
	if len(r.pending) == 0 {
		return
	}
	var expired []uint16
	for id, h := range r.pending {
		h.deadlineMs -= elapsedMs
		if h.deadlineMs <= 0 {
			expired = append(expired, id)
			continue
		}
		r.pending[id] = h
	}
	for _, id := range expired {
		h := r.pending[id]
		delete(r.pending, id)
		if h.onError != nil {
			h.onError(protoerr.ErrMessageTimeout)
		}
	}
}

// SetResult fires the success handler for msgID and removes it, if
// one is pending. It is a no-op for an unknown id (a late or
// duplicate reply after the handler already fired).
func (r *Registry) SetResult(msgID uint16) {
	h, ok := r.pending[msgID]
	if !ok {
		return
	}
	delete(r.pending, msgID)
	if h.onSuccess != nil {
		h.onSuccess()
	}
}

// SetError fires the error handler for msgID with err and removes it.
func (r *Registry) SetError(msgID uint16, err error) {
	h, ok := r.pending[msgID]
	if !ok {
		return
	}
	delete(r.pending, msgID)
	if h.onError != nil {
		h.onError(err)
	}
}

// Has reports whether msgID currently has a pending handler.
func (r *Registry) Has(msgID uint16) bool {
	_, ok := r.pending[msgID]
	return ok
}

// Clear drops every pending handler without invoking any of them,
// used at session boundaries where in-flight requests no longer make
// sense against the new session.
func (r *Registry) Clear() {
	r.pending = make(map[uint16]handler)
}

// Len reports the number of pending handlers, mostly for tests.
func (r *Registry) Len() int {
	return len(r.pending)
}
