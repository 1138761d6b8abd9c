// Package mcphttp implements the MCP-over-HTTP-streaming protocol Adapter:
// CallTool, ReadResource, GetPrompt, and Initialize wire shapes map onto
// RequestEnvelope/ResponseEntity the same way REST's Adapter does, just
// with mcp-go's request/result types standing in for *http.Request.
package mcphttp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/cheshire-mcp/cheshire/internal/protocol"
)

const protocolName = "MCP_JSON_RPC"

// Kind identifies which of the four MCP request shapes a WireRequest came
// from.
type Kind string

const (
	KindCallTool    Kind = "tool"
	KindReadResource Kind = "resource"
	KindGetPrompt   Kind = "prompt"
	KindInitialize  Kind = "initialize"
)

// WireRequest is the protocol-neutral shape server.go's mcp-go handler
// factories build from each concrete mcp.CallToolRequest /
// mcp.ReadResourceRequest / mcp.GetPromptRequest / initialize hook before
// handing it to the Adapter — keeping this file free of any mcp-go import.
type WireRequest struct {
	Kind      Kind
	Name      string // tool/prompt name, or resource URI for KindReadResource
	Arguments map[string]interface{}
	Meta      map[string]interface{}

	// Initialize-only fields.
	Client    string
	SessionID string
}

// Adapter implements protocol.Adapter for the MCP-over-HTTP-streaming
// binding.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) ProtocolType() string { return protocolName }

func (a *Adapter) SupportedContentTypes() []string {
	return []string{"application/json"}
}

// ToRequestEnvelope maps each of the four MCP wire shapes onto a
// RequestEnvelope:
//   - CallTool(name,arguments,meta)    -> action=name, payload={data:arguments,meta}
//   - ReadResource(uri,meta)           -> action=last path segment, payload={params: query params + uri, meta}
//   - GetPrompt(name,arguments,meta)   -> action=name, payload={data:arguments,meta}
//   - Initialize(client,sessionId,meta)-> action="initialize", payload={client,sessionId,meta}
func (a *Adapter) ToRequestEnvelope(wireRequest interface{}, capabilityName string) (envelope.RequestEnvelope, error) {
	req, ok := wireRequest.(*WireRequest)
	if !ok {
		return envelope.RequestEnvelope{}, &protocol.AdapterError{Protocol: protocolName, Reason: "wireRequest is not *mcphttp.WireRequest"}
	}

	meta := envelope.ProtocolMetadata{Protocol: protocolName, ActionKind: string(req.Kind)}

	switch req.Kind {
	case KindCallTool, KindGetPrompt:
		params := map[string]interface{}{}
		for k, v := range req.Arguments {
			params[k] = v
		}
		for k, v := range req.Meta {
			params[k] = v
		}
		payload := envelope.Payload{Type: envelope.PayloadMap, Body: req.Arguments, Parameters: params}
		return envelope.New(capabilityName, req.Name, meta, payload, nil), nil

	case KindReadResource:
		action, params, err := parseResourceURI(req.Name)
		if err != nil {
			return envelope.RequestEnvelope{}, &protocol.AdapterError{Protocol: protocolName, Reason: "malformed resource URI", Cause: err}
		}
		for k, v := range req.Meta {
			params[k] = v
		}
		payload := envelope.Payload{Type: envelope.PayloadMap, Parameters: params}
		return envelope.New(capabilityName, action, meta, payload, nil), nil

	case KindInitialize:
		params := map[string]interface{}{"client": req.Client, "sessionId": req.SessionID}
		for k, v := range req.Meta {
			params[k] = v
		}
		payload := envelope.Payload{Type: envelope.PayloadMap, Parameters: params}
		return envelope.New(capabilityName, "initialize", meta, payload, nil), nil

	default:
		return envelope.RequestEnvelope{}, &protocol.AdapterError{Protocol: protocolName, Reason: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

// parseResourceURI splits uri on its first '?', URL-decodes each query
// token and coerces it to bool/int64/float64/string, and preserves the
// full URI under the "uri" key.
func parseResourceURI(uri string) (action string, params map[string]interface{}, err error) {
	params = map[string]interface{}{"uri": uri}

	path := uri
	var query string
	if idx := strings.Index(uri, "?"); idx >= 0 {
		path = uri[:idx]
		query = uri[idx+1:]
	}

	action = path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		action = path[idx+1:]
	}
	if action == "" {
		return "", nil, fmt.Errorf("mcphttp: resource URI %q has no path segment", uri)
	}

	if query != "" {
		values, perr := url.ParseQuery(query)
		if perr != nil {
			return "", nil, perr
		}
		for k, vs := range values {
			if len(vs) == 0 {
				continue
			}
			params[k] = coerce(vs[0])
		}
	}
	return action, params, nil
}

func coerce(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if decoded, err := url.QueryUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

// WireResult is what FromProcessingResult returns; server.go's handler
// factories type-assert it back into the concrete mcp-go result shape
// their Kind expects.
type WireResult struct {
	Kind Kind

	// CallTool / GetPrompt text.
	Text string
	// Structured content mirrors Data for CallTool results.
	Structured interface{}
	IsError    bool
	Message    string
	// Meta echoes the request's _meta field back onto the result.
	Meta map[string]interface{}

	// ReadResource.
	URI      string
	MIMEType string
}

// FromProcessingResult renders a ResponseEntity into a *WireResult: Success
// carries a JSON text block plus structured content plus the request's
// meta echoed back; Failure becomes an isError result (tools/prompts) or
// an error server.go's caller must surface as a protocol-level failure
// (resource reads).
func (a *Adapter) FromProcessingResult(wireRequest interface{}, result envelope.ResponseEntity) (interface{}, error) {
	req, ok := wireRequest.(*WireRequest)
	if !ok {
		return nil, &protocol.AdapterError{Protocol: protocolName, Reason: "wireRequest is not *mcphttp.WireRequest"}
	}

	if !result.IsSuccess() {
		return &WireResult{Kind: req.Kind, IsError: true, Message: result.Message}, nil
	}

	data, err := json.Marshal(result.Data)
	if err != nil {
		return nil, &protocol.AdapterError{Protocol: protocolName, Reason: "result not JSON-serializable", Cause: err}
	}

	switch req.Kind {
	case KindReadResource:
		return &WireResult{Kind: req.Kind, URI: req.Name, MIMEType: "application/json", Text: string(data), Meta: req.Meta}, nil
	default:
		return &WireResult{Kind: req.Kind, Text: string(data), Structured: result.Data, Meta: req.Meta}, nil
	}
}
