package stdsteps

import (
	"fmt"

	"github.com/cheshire-mcp/cheshire/internal/pipeline"
	"github.com/golang-jwt/jwt/v5"
)

// PrincipalKey is the Attributes key the JWTPrincipal pre-processor stores
// the verified claims under, and the conventional key downstream steps and
// the query engine context read the principal from. The principal is an
// explicit value on RequestContext rather than ambient thread-local state;
// this key is how it rides inside Attributes.
const PrincipalKey = "cheshire.principal"

// JWTPrincipal is a PreProcessor that extracts and verifies a bearer JWT
// from the request's transport headers, storing the verified claims in the
// pipeline Context's Attributes for downstream authorization checks and
// security-context propagation into the query engine.
type JWTPrincipal struct {
	StepName string
	KeyFunc  jwt.Keyfunc
	// Required, when true, rejects requests with no bearer token at all
	// with an AuthorizationError (maps to StatusUnauthorized).
	Required bool
}

func (j *JWTPrincipal) Name() string {
	if j.StepName != "" {
		return j.StepName
	}
	return "jwt-principal"
}

func (j *JWTPrincipal) Process(ctx *pipeline.Context, input pipeline.Input) (pipeline.Input, error) {
	headers := ctx.Request.TransportHeaders
	var raw string
	if headers != nil {
		if vals := headers["Authorization"]; len(vals) > 0 {
			raw = vals[0]
		}
	}
	if raw == "" {
		if j.Required {
			return nil, &pipeline.AuthorizationError{Authenticated: false, Message: "missing bearer token"}
		}
		return input, nil
	}

	const prefix = "Bearer "
	if len(raw) > len(prefix) && raw[:len(prefix)] == prefix {
		raw = raw[len(prefix):]
	}

	token, err := jwt.Parse(raw, j.KeyFunc)
	if err != nil || !token.Valid {
		return nil, &pipeline.AuthorizationError{Authenticated: false, Message: fmt.Sprintf("invalid token: %v", err)}
	}

	claims, _ := token.Claims.(jwt.MapClaims)
	ctx.Attributes().Put(PrincipalKey, claims)
	if sub, ok := claims["sub"].(string); ok {
		ctx.Request.UserID = sub
	}
	return input, nil
}

// RequireClaim is a PreProcessor that enforces a previously-extracted JWT
// claim equals an expected value, producing a Forbidden-classified
// AuthorizationError otherwise. It must run after JWTPrincipal in a
// pipeline's pre-processor order.
type RequireClaim struct {
	StepName string
	Claim    string
	Equals   string
}

func (r *RequireClaim) Name() string {
	if r.StepName != "" {
		return r.StepName
	}
	return "require-claim:" + r.Claim
}

func (r *RequireClaim) Process(ctx *pipeline.Context, input pipeline.Input) (pipeline.Input, error) {
	v, ok := ctx.Attributes().Get(PrincipalKey)
	if !ok {
		return nil, &pipeline.AuthorizationError{Authenticated: false, Message: "no principal on request"}
	}
	claims, ok := v.(jwt.MapClaims)
	if !ok {
		return nil, &pipeline.AuthorizationError{Authenticated: false, Message: "malformed principal"}
	}
	val, _ := claims[r.Claim].(string)
	if val != r.Equals {
		return nil, &pipeline.AuthorizationError{Authenticated: true, Message: fmt.Sprintf("claim %q does not match required value", r.Claim)}
	}
	return input, nil
}
