// Package envelope defines the internal normalized request/response
// shapes that every protocol adapter maps wire traffic into and out of:
// the RequestEnvelope ingress side and the ResponseEntity egress side.
package envelope

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PayloadType identifies the wire shape the original body arrived in.
type PayloadType string

const (
	PayloadJSON  PayloadType = "JSON"
	PayloadXML   PayloadType = "XML"
	PayloadMap   PayloadType = "MAP"
	PayloadEmpty PayloadType = "EMPTY"
)

// Payload carries the request body plus any parameters merged in from the
// query string, path, or protocol-specific arguments.
type Payload struct {
	Type PayloadType
	// Body holds the decoded body for JSON/XML/MAP payloads; nil for EMPTY.
	Body interface{}
	// Parameters holds query-string/path/tool-argument parameters, merged
	// on top of Body by the adapter
	Parameters map[string]interface{}
}

// Param looks up a parameter by name, falling back to a key of the same
// name inside a map-shaped Body if the parameter isn't present directly.
func (p Payload) Param(name string) (interface{}, bool) {
	if p.Parameters != nil {
		if v, ok := p.Parameters[name]; ok {
			return v, true
		}
	}
	if body, ok := p.Body.(map[string]interface{}); ok {
		if v, ok := body[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// ProtocolMetadata captures the wire-protocol-specific envelope of a
// request: which protocol it arrived on, the headers, and (for REST) the
// method/URI it targeted.
type ProtocolMetadata struct {
	Protocol string
	Version  string
	Headers  map[string][]string
	URI      string
	Method   string
	// ActionKind further classifies the action within its protocol, e.g.
	// an MCP request arriving as "tool", "resource", "prompt", or
	// "initialize". Empty for protocols with no such distinction (REST).
	ActionKind string
}

// ActionKindTool is the ActionKind value an MCP CallTool request maps to.
const ActionKindTool = "tool"

// Attributes is a concurrency-safe, per-request key/value bag. Reads return
// a defensive copy: callers must not assume a live view.
// This is an explicit handle rather than a bare map precisely because the
// source's shared static attribute map was a bug — every RequestContext gets its own instance.
type Attributes struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewAttributes returns an empty, ready-to-use Attributes handle.
func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]interface{})}
}

// Put sets key unconditionally.
func (a *Attributes) Put(key string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
}

// PutIfAbsent sets key only if it is not already present, returning whether
// the set happened.
func (a *Attributes) PutIfAbsent(key string, value interface{}) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.values[key]; exists {
		return false
	}
	a.values[key] = value
	return true
}

// Get returns the value for key and whether it was present.
func (a *Attributes) Get(key string) (interface{}, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

// Snapshot returns a defensive copy of all attributes.
func (a *Attributes) Snapshot() map[string]interface{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]interface{}, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}

// RequestContext carries per-call metadata that flows alongside an
// envelope through the pipeline and into the query engine.
type RequestContext struct {
	SessionID       string
	UserID          string
	TraceID         string
	SecurityContext map[string]interface{} // unmodifiable; set once at construction
	TransportHeaders map[string][]string
	Attributes      *Attributes
	ArrivalTime     time.Time
	Deadline        *time.Time
}

// DeadlineExceeded reports whether the context's deadline, if any, has
// already passed as of now.
func (c *RequestContext) DeadlineExceeded(now time.Time) bool {
	return c.Deadline != nil && now.After(*c.Deadline)
}

// RequestEnvelope is the single internal representation every protocol
// adapter normalizes wire traffic into. Immutable once built.
type RequestEnvelope struct {
	RequestID        string
	Capability       string
	Action           string
	ProtocolMetadata ProtocolMetadata
	Payload          Payload
	Context          *RequestContext
	ArrivalTime      time.Time
}

// New builds a RequestEnvelope with a freshly generated RequestID and an
// ArrivalTime of now. A nil ctx is replaced by a fresh RequestContext that
// arrives now; a ctx without Attributes gets a fresh Attributes handle.
func New(capability, action string, meta ProtocolMetadata, payload Payload, ctx *RequestContext) RequestEnvelope {
	now := time.Now()
	if ctx == nil {
		ctx = &RequestContext{Attributes: NewAttributes(), ArrivalTime: now}
	} else if ctx.Attributes == nil {
		ctx.Attributes = NewAttributes()
	}
	return RequestEnvelope{
		RequestID:        uuid.NewString(),
		Capability:       capability,
		Action:           action,
		ProtocolMetadata: meta,
		Payload:          payload,
		Context:          ctx,
		ArrivalTime:      now,
	}
}
