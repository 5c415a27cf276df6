package protocol

import (
	"encoding/json"
	"sync"
)

// PendingRequest is the most recent client request awaiting a response.
// Only one is ever tracked — a later request overwrites it, matching the
// "single pending request" design (see spec notes on why this loses
// visibility of earlier in-flight requests on crash, and why that's fine).
type PendingRequest struct {
	ID     json.RawMessage
	Method string
}

// Session holds the three facts that define one proxy session:
// whether the handshake is complete, the cached initialize request (so it
// can be replayed to every new child), and the single in-flight request.
// Safe for concurrent use.
type Session struct {
	mu          sync.Mutex
	initialized bool
	initReq     []byte
	initReqID   json.RawMessage
	pending     *PendingRequest
}

// NewSession returns a fresh, uninitialized Session.
func NewSession() *Session {
	return &Session{}
}

// OnClientMessage updates state for a frame read from the client. raw must
// be the frame's original bytes (retained verbatim for replay).
func (s *Session) OnClientMessage(msg *Message, raw []byte) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.IsRequest() {
		s.pending = &PendingRequest{ID: append(json.RawMessage(nil), msg.ID...), Method: msg.Method}
	}

	if msg.Method == "initialize" {
		s.initReq = append([]byte(nil), raw...)
		s.initReqID = append(json.RawMessage(nil), msg.ID...)
		s.initialized = false
	}
}

// OnServerMessage updates state for a parsed response read from the
// server.
func (s *Session) OnServerMessage(msg *Message) {
	if msg == nil || !msg.IsResponse() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initReqID != nil && idsEqual(msg.ID, s.initReqID) && len(msg.Result) > 0 {
		s.initialized = true
	}
	if s.pending != nil && idsEqual(msg.ID, s.pending.ID) {
		s.pending = nil
	}
}

// Reset clears all session facts, as on shutdown.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.initReq = nil
	s.initReqID = nil
	s.pending = nil
}

// Initialized reports whether the cached initialize request's response has
// arrived with a result.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// InitializeRequest returns the cached raw initialize request bytes, and
// whether one has been seen.
func (s *Session) InitializeRequest() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initReq == nil {
		return nil, false
	}
	return append([]byte(nil), s.initReq...), true
}

// Pending returns the currently tracked in-flight request, if any.
func (s *Session) Pending() (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return PendingRequest{}, false
	}
	return *s.pending, true
}

// MarkUninitialized forces initialized back to false without touching the
// cached initialize request, used when attaching a freshly spawned child
// that has not yet answered the replayed handshake.
func (s *Session) MarkUninitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
}

// ClearPending drops the tracked in-flight request unconditionally, used
// after synthesizing a crash response for it.
func (s *Session) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func idsEqual(a, b json.RawMessage) bool {
	return string(a) == string(b)
}
