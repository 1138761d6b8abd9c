package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/capability"
	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/cheshire-mcp/cheshire/internal/pipeline"
	"github.com/cheshire-mcp/cheshire/internal/queryengine"
	"github.com/cheshire-mcp/cheshire/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct{ name string }

func (e *stubEngine) Name() string                         { return e.name }
func (e *stubEngine) Open(ctx *queryengine.Context) error  { return nil }
func (e *stubEngine) IsOpen() bool                         { return true }
func (e *stubEngine) Close(ctx *queryengine.Context) error { return nil }
func (e *stubEngine) Validate(ctx *queryengine.Context, q queryengine.LogicalQuery) (bool, error) {
	return true, nil
}
func (e *stubEngine) Explain(ctx *queryengine.Context, q queryengine.LogicalQuery) (string, error) {
	return "", nil
}
func (e *stubEngine) SupportsStreaming() bool { return false }
func (e *stubEngine) Execute(ctx *queryengine.Context, q queryengine.LogicalQuery) (*queryengine.Result, error) {
	return queryengine.NewResult(nil, nil), nil
}

func newRunningSession(t *testing.T) *session.Session {
	s := session.New()
	require.NoError(t, s.QueryEngines.Register("qe1", &stubEngine{name: "qe1"}))
	require.NoError(t, s.Start(context.Background()))
	return s
}

func execFunc(fn func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error)) pipeline.Executor {
	return &fnExecutor{fn: fn}
}

type fnExecutor struct {
	fn func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error)
}

func (f *fnExecutor) Name() string { return "fn-exec" }
func (f *fnExecutor) Execute(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
	return f.fn(ctx, in)
}

func registerCapability(t *testing.T, s *session.Session, action string, exec pipeline.Executor) {
	def, err := pipeline.NewDefinition(nil, exec, nil)
	require.NoError(t, err)
	cap := &capability.Capability{
		Name:        "blog",
		QueryEngine: "qe1",
		Pipelines:   map[string]*pipeline.Definition{action: def},
	}
	require.NoError(t, s.RegisterCapability(cap))
}

func TestDispatchUnknownCapabilityReturnsNotFound(t *testing.T) {
	s := newRunningSession(t)
	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "ghost", Action: "x"})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, envelope.StatusNotFound, resp.FailStatus)
}

func TestDispatchUnknownActionReturnsNotFound(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "listArticles", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return in, nil
	}))
	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "blog", Action: "ghost"})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, envelope.StatusNotFound, resp.FailStatus)
}

func TestDispatchSucceedsAndNeverReturnsZeroValue(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "listArticles", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return map[string]interface{}{"ok": true}, nil
	}))
	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "blog", Action: "listArticles"})
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, map[string]interface{}{"ok": true}, resp.Data)
}

func TestDispatchPastDeadlineReturnsServiceUnavailableWithoutRunningPipeline(t *testing.T) {
	s := newRunningSession(t)
	ran := false
	registerCapability(t, s, "listArticles", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		ran = true
		return nil, nil
	}))
	d := New(s)
	past := time.Now().Add(-time.Minute)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{
		Capability: "blog", Action: "listArticles",
		Context: &envelope.RequestContext{Deadline: &past},
	})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, envelope.StatusServiceUnavailable, resp.FailStatus)
	assert.False(t, ran)
}

func TestDispatchClassifiesValidationFailureAsBadRequest(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "listArticles", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return nil, &pipeline.ValidationError{Field: "limit", Message: "must be positive", Code: "invalid"}
	}))
	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "blog", Action: "listArticles"})
	assert.Equal(t, envelope.StatusBadRequest, resp.FailStatus)
}

func TestDispatchClassifiesAuthorizationFailures(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "unauth", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return nil, &pipeline.AuthorizationError{Authenticated: false}
	}))
	registerCapabilityAction(t, s, "forbidden", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return nil, &pipeline.AuthorizationError{Authenticated: true}
	}))
	d := New(s)

	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "blog", Action: "unauth"})
	assert.Equal(t, envelope.StatusUnauthorized, resp.FailStatus)

	resp = d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "blog", Action: "forbidden"})
	assert.Equal(t, envelope.StatusForbidden, resp.FailStatus)
}

// registerCapabilityAction adds another action's pipeline to the existing
// "blog" capability rather than re-registering the capability (capability
// names are unique within a session).
func registerCapabilityAction(t *testing.T, s *session.Session, action string, exec pipeline.Executor) {
	cap, err := s.Capabilities.Get("blog")
	require.NoError(t, err)
	def, err := pipeline.NewDefinition(nil, exec, nil)
	require.NoError(t, err)
	cap.Pipelines[action] = def
}

func TestDispatchDeclaredToolWithNoBoundPipelineFailsExecution(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "listArticles", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return in, nil
	}))
	cap, err := s.Capabilities.Get("blog")
	require.NoError(t, err)
	cap.Actions.Tools = []capability.Tool{{Name: "summarize"}}

	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{
		Capability:       "blog",
		Action:           "summarize",
		ProtocolMetadata: envelope.ProtocolMetadata{ActionKind: envelope.ActionKindTool},
	})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, envelope.StatusExecutionFailed, resp.FailStatus)
}

func TestDispatchUnknownNonToolActionStillReturnsNotFound(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "listArticles", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return in, nil
	}))
	cap, err := s.Capabilities.Get("blog")
	require.NoError(t, err)
	cap.Actions.Tools = []capability.Tool{{Name: "summarize"}}

	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{
		Capability:       "blog",
		Action:           "summarize",
		ProtocolMetadata: envelope.ProtocolMetadata{ActionKind: "resource"},
	})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, envelope.StatusNotFound, resp.FailStatus)
}

func TestDispatchClassifiesUnknownErrorAsExecutionFailed(t *testing.T) {
	s := newRunningSession(t)
	registerCapability(t, s, "boom", execFunc(func(ctx *pipeline.Context, in pipeline.Input) (pipeline.Output, error) {
		return nil, assertErr("boom")
	}))
	d := New(s)
	resp := d.Dispatch(context.Background(), envelope.RequestEnvelope{Capability: "blog", Action: "boom"})
	assert.Equal(t, envelope.StatusExecutionFailed, resp.FailStatus)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
