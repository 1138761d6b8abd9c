package rest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToRequestEnvelopeParsesActionAndQueryParams(t *testing.T) {
	adapter := New("/api/v1")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/blog/listArticles?limit=5&published=true", nil)
	env, err := adapter.ToRequestEnvelope(req, "blog")
	require.NoError(t, err)
	assert.Equal(t, "listArticles", env.Action)
	assert.Equal(t, "blog", env.Capability)
	limit, _ := env.Payload.Param("limit")
	assert.EqualValues(t, 5, limit)
	published, _ := env.Payload.Param("published")
	assert.Equal(t, true, published)
}

func TestToRequestEnvelopeParsesJSONBody(t *testing.T) {
	adapter := New("/api/v1")
	body := bytes.NewBufferString(`{"title":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blog/createArticle", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(body.Len())
	env, err := adapter.ToRequestEnvelope(req, "blog")
	require.NoError(t, err)
	assert.Equal(t, envelope.PayloadJSON, env.Payload.Type)
}

func TestToRequestEnvelopeRejectsMalformedJSON(t *testing.T) {
	adapter := New("/api/v1")
	body := bytes.NewBufferString(`{not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blog/createArticle", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = int64(body.Len())
	_, err := adapter.ToRequestEnvelope(req, "blog")
	require.Error(t, err)
}

func TestFromProcessingResultRendersSuccess(t *testing.T) {
	adapter := New("/api/v1")
	result := envelope.Success(map[string]interface{}{"id": 1}, nil)
	rendered, err := adapter.FromProcessingResult(nil, result)
	require.NoError(t, err)
	resp := rendered.(*HTTPResponse)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, resp.Body["success"])
}

func TestFromProcessingResultRendersFailureWithMappedStatus(t *testing.T) {
	adapter := New("/api/v1")
	result := envelope.Failure(envelope.StatusNotFound, nil, "unknown capability")
	rendered, err := adapter.FromProcessingResult(nil, result)
	require.NoError(t, err)
	resp := rendered.(*HTTPResponse)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, false, resp.Body["success"])
}

func TestHTTPStatusMappingIsTotalAndInjective(t *testing.T) {
	statuses := []envelope.Status{
		envelope.StatusSuccess, envelope.StatusBadRequest, envelope.StatusUnauthorized,
		envelope.StatusForbidden, envelope.StatusNotFound, envelope.StatusExecutionFailed,
		envelope.StatusServiceUnavailable,
	}
	seen := map[int]envelope.Status{}
	for _, s := range statuses {
		code := s.HTTPStatus()
		if other, ok := seen[code]; ok {
			t.Fatalf("status %s and %s both map to HTTP %d", s, other, code)
		}
		seen[code] = s
	}
}
