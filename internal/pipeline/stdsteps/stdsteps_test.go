package stdsteps

import (
	"context"
	"testing"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/cheshire-mcp/cheshire/internal/pipeline"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(headers map[string][]string) *pipeline.Context {
	return &pipeline.Context{
		Go: context.Background(),
		Request: &envelope.RequestContext{
			Attributes:       envelope.NewAttributes(),
			TransportHeaders: headers,
		},
	}
}

func TestRequiredParamsRejectsMissingField(t *testing.T) {
	step := &RequiredParams{Params: []string{"id"}}
	_, err := step.Process(newTestContext(nil), map[string]interface{}{"other": 1})
	require.Error(t, err)

	out, err := step.Process(newTestContext(nil), map[string]interface{}{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "42", out.(map[string]interface{})["id"])
}

type validatedInput struct {
	Name string `validate:"required"`
}

func TestStructValidatorRejectsInvalidStruct(t *testing.T) {
	step := &StructValidator{}
	_, err := step.Process(newTestContext(nil), &validatedInput{})
	require.Error(t, err)

	out, err := step.Process(newTestContext(nil), &validatedInput{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out.(*validatedInput).Name)
}

func signedToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestJWTPrincipalExtractsClaims(t *testing.T) {
	secret := []byte("test-secret")
	keyFunc := func(t *jwt.Token) (interface{}, error) { return secret, nil }
	step := &JWTPrincipal{KeyFunc: keyFunc, Required: true}

	tok := signedToken(t, secret, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})
	ctx := newTestContext(map[string][]string{"Authorization": {"Bearer " + tok}})

	_, err := step.Process(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "user-1", ctx.Request.UserID)

	v, ok := ctx.Attributes().Get(PrincipalKey)
	require.True(t, ok)
	claims := v.(jwt.MapClaims)
	assert.Equal(t, "user-1", claims["sub"])
}

func TestJWTPrincipalRequiredRejectsMissingToken(t *testing.T) {
	step := &JWTPrincipal{Required: true, KeyFunc: func(t *jwt.Token) (interface{}, error) { return nil, nil }}
	_, err := step.Process(newTestContext(nil), nil)
	require.Error(t, err)
}

func TestPaginateSlicesRows(t *testing.T) {
	rows := []map[string]interface{}{{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4}}
	step := &Paginate{DefaultLimit: 2}
	out, err := step.Process(newTestContext(nil), rows)
	require.NoError(t, err)
	assert.Len(t, out.([]map[string]interface{}), 2)
}

func TestProjectFieldsNarrowsRows(t *testing.T) {
	rows := []map[string]interface{}{{"id": 1, "secret": "x"}}
	step := &ProjectFields{Fields: []string{"id"}}
	out, err := step.Process(newTestContext(nil), rows)
	require.NoError(t, err)
	projected := out.([]map[string]interface{})
	require.Len(t, projected, 1)
	_, hasSecret := projected[0]["secret"]
	assert.False(t, hasSecret)
	assert.Equal(t, 1, projected[0]["id"])
}
