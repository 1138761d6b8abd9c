// Package rest implements the REST-over-HTTP protocol Adapter: requests on
// `/{base}/{capability}/{action}` become RequestEnvelopes, and
// ResponseEntities render back to a status-coded JSON envelope.
// Grounded on a chi-router-plus-middleware style (cmd/server/main.go-style
// wiring, gateway handlers with route param + JSON body decoding).
package rest

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/cheshire-mcp/cheshire/internal/protocol"
)

const protocolName = "HTTP_JSON"

// Adapter implements protocol.Adapter for REST-over-HTTP.
type Adapter struct {
	BasePath string
}

// New builds an Adapter mounted under basePath (e.g. "/api/v1").
func New(basePath string) *Adapter {
	return &Adapter{BasePath: strings.TrimSuffix(basePath, "/")}
}

func (a *Adapter) ProtocolType() string { return protocolName }

func (a *Adapter) SupportedContentTypes() []string {
	return []string{"application/json", "application/xml", "multipart/form-data"}
}

// ToRequestEnvelope builds an envelope from an *http.Request. action is
// the last path segment after {base}/{capability}/.
func (a *Adapter) ToRequestEnvelope(wireRequest interface{}, capabilityName string) (envelope.RequestEnvelope, error) {
	req, ok := wireRequest.(*http.Request)
	if !ok {
		return envelope.RequestEnvelope{}, &protocol.AdapterError{Protocol: protocolName, Reason: "wireRequest is not *http.Request"}
	}

	action := lastPathSegment(req.URL.Path)
	if action == "" {
		return envelope.RequestEnvelope{}, &protocol.AdapterError{Protocol: protocolName, Reason: "request path has no action segment"}
	}

	payload, err := a.buildPayload(req)
	if err != nil {
		return envelope.RequestEnvelope{}, err
	}

	meta := envelope.ProtocolMetadata{
		Protocol: protocolName,
		Headers:  req.Header,
		URI:      req.URL.String(),
		Method:   req.Method,
	}

	reqCtx := &envelope.RequestContext{
		TransportHeaders: req.Header,
		Attributes:       envelope.NewAttributes(),
	}

	return envelope.New(capabilityName, action, meta, payload, reqCtx), nil
}

func (a *Adapter) buildPayload(req *http.Request) (envelope.Payload, error) {
	params := map[string]interface{}{}
	for k, values := range req.URL.Query() {
		if len(values) == 1 {
			params[k] = coerce(values[0])
		} else {
			coerced := make([]interface{}, len(values))
			for i, v := range values {
				coerced[i] = coerce(v)
			}
			params[k] = coerced
		}
	}

	if req.Body == nil || req.ContentLength == 0 {
		return envelope.Payload{Type: envelope.PayloadEmpty, Parameters: params}, nil
	}

	contentType := req.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		var body interface{}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return envelope.Payload{}, &protocol.AdapterError{Protocol: protocolName, Reason: "malformed JSON body", Cause: err}
		}
		return envelope.Payload{Type: envelope.PayloadJSON, Body: body, Parameters: params}, nil
	case strings.Contains(contentType, "application/xml"):
		var body interface{}
		if err := xml.NewDecoder(req.Body).Decode(&body); err != nil {
			return envelope.Payload{}, &protocol.AdapterError{Protocol: protocolName, Reason: "malformed XML body", Cause: err}
		}
		return envelope.Payload{Type: envelope.PayloadXML, Body: body, Parameters: params}, nil
	default:
		return envelope.Payload{Type: envelope.PayloadEmpty, Parameters: params}, nil
	}
}

// FromProcessingResult renders a ResponseEntity to its fixed JSON shape
// and status code. The returned value is a *HTTPResponse the caller's
// handler writes out.
func (a *Adapter) FromProcessingResult(wireRequest interface{}, result envelope.ResponseEntity) (interface{}, error) {
	if result.IsSuccess() {
		body := map[string]interface{}{"success": true, "result": result.Data}
		if len(result.MetadataKeys()) > 0 {
			body["debug"] = result.Metadata
		}
		return &HTTPResponse{StatusCode: envelope.StatusSuccess.HTTPStatus(), Body: body}, nil
	}

	body := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"type":    string(result.FailStatus),
			"message": result.Message,
		},
	}
	return &HTTPResponse{StatusCode: result.FailStatus.HTTPStatus(), Body: body}, nil
}

// HTTPResponse is the wire-level shape FromProcessingResult returns; the
// REST handler (see handler.go) writes it to an http.ResponseWriter.
type HTTPResponse struct {
	StatusCode int
	Body       map[string]interface{}
}

func lastPathSegment(p string) string {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
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
