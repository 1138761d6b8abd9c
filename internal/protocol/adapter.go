// Package protocol defines the bidirectional Adapter contract every wire
// protocol binding (REST, MCP-over-HTTP, MCP-over-stdio) implements.
package protocol

import (
	"fmt"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
)

// AdapterError is the sealed failure kind every Adapter method raises —
// malformed inbound requests and unserializable outbound results both
// surface as this type so a caller only has one thing to check for.
type AdapterError struct {
	Protocol string
	Reason   string
	Cause    error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s adapter: %s: %v", e.Protocol, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s adapter: %s", e.Protocol, e.Reason)
}
func (e *AdapterError) Unwrap() error { return e.Cause }

// Adapter is the bidirectional contract between one wire protocol's
// request/response shapes and the internal envelope/response types.
// WireRequest and WireResponse are left as interface{} since each binding
// has its own concrete shapes (http.Request, mcp.CallToolRequest, ...).
type Adapter interface {
	ProtocolType() string
	SupportedContentTypes() []string
	ToRequestEnvelope(wireRequest interface{}, capabilityName string) (envelope.RequestEnvelope, error)
	FromProcessingResult(wireRequest interface{}, result envelope.ResponseEntity) (interface{}, error)
}
