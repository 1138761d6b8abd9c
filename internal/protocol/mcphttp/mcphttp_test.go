package mcphttp

import (
	"testing"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRequestEnvelopeCallToolMapsArgumentsAndAction(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindCallTool, Name: "listArticles", Arguments: map[string]interface{}{"limit": 2}}
	env, err := a.ToRequestEnvelope(wire, "blog")
	require.NoError(t, err)
	assert.Equal(t, "listArticles", env.Action)
	assert.Equal(t, "blog", env.Capability)
	limit, ok := env.Payload.Param("limit")
	require.True(t, ok)
	assert.Equal(t, 2, limit)
}

func TestToRequestEnvelopeReadResourceParsesURI(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindReadResource, Name: "blog://articles/recent?limit=5&published=true"}
	env, err := a.ToRequestEnvelope(wire, "blog")
	require.NoError(t, err)
	assert.Equal(t, "recent", env.Action)
	limit, _ := env.Payload.Param("limit")
	assert.EqualValues(t, 5, limit)
	published, _ := env.Payload.Param("published")
	assert.Equal(t, true, published)
	uri, _ := env.Payload.Param("uri")
	assert.Equal(t, wire.Name, uri)
}

func TestToRequestEnvelopeInitializeMapsClientAndSession(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindInitialize, Client: "claude", SessionID: "sess-1"}
	env, err := a.ToRequestEnvelope(wire, "blog")
	require.NoError(t, err)
	assert.Equal(t, "initialize", env.Action)
	client, _ := env.Payload.Param("client")
	assert.Equal(t, "claude", client)
	sid, _ := env.Payload.Param("sessionId")
	assert.Equal(t, "sess-1", sid)
}

func TestFromProcessingResultSuccessCallToolProducesJSONText(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindCallTool, Name: "listArticles"}
	result := envelope.Success([]map[string]interface{}{{"id": float64(1)}}, nil)
	rendered, err := a.FromProcessingResult(wire, result)
	require.NoError(t, err)
	wr := rendered.(*WireResult)
	assert.False(t, wr.IsError)
	assert.Equal(t, `[{"id":1}]`, wr.Text)
}

func TestFromProcessingResultFailureMarksIsError(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindCallTool, Name: "listArticles"}
	result := envelope.Failure(envelope.StatusNotFound, nil, "unknown action")
	rendered, err := a.FromProcessingResult(wire, result)
	require.NoError(t, err)
	wr := rendered.(*WireResult)
	assert.True(t, wr.IsError)
	assert.Equal(t, "unknown action", wr.Message)
}

func TestToRequestEnvelopeCallToolSetsToolActionKind(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindCallTool, Name: "listArticles"}
	env, err := a.ToRequestEnvelope(wire, "blog")
	require.NoError(t, err)
	assert.Equal(t, envelope.ActionKindTool, env.ProtocolMetadata.ActionKind)
}

func TestFromProcessingResultSuccessCallToolCarriesStructuredContentAndMeta(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindCallTool, Name: "listArticles", Meta: map[string]interface{}{"progressToken": "abc"}}
	data := []map[string]interface{}{{"id": float64(1)}}
	result := envelope.Success(data, nil)
	rendered, err := a.FromProcessingResult(wire, result)
	require.NoError(t, err)
	wr := rendered.(*WireResult)
	assert.Equal(t, data, wr.Structured)
	assert.Equal(t, wire.Meta, wr.Meta)
}

func TestFromProcessingResultReadResourceCarriesURIAndMIMEType(t *testing.T) {
	a := New()
	wire := &WireRequest{Kind: KindReadResource, Name: "blog://articles/recent"}
	result := envelope.Success(map[string]interface{}{"id": 1}, nil)
	rendered, err := a.FromProcessingResult(wire, result)
	require.NoError(t, err)
	wr := rendered.(*WireResult)
	assert.Equal(t, wire.Name, wr.URI)
	assert.Equal(t, "application/json", wr.MIMEType)
}
