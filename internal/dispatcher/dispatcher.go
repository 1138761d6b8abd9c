// Package dispatcher implements the deterministic envelope-to-pipeline
// resolution: capability lookup, action lookup,
// deadline check, pipeline execution and failure classification into a
// ResponseEntity the caller can always render, regardless of protocol.
package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/cheshire-mcp/cheshire/internal/pipeline"
	"github.com/cheshire-mcp/cheshire/internal/queryengine"
	"github.com/cheshire-mcp/cheshire/internal/session"
	"github.com/cheshire-mcp/cheshire/internal/sourceprovider"
	"github.com/cheshire-mcp/cheshire/pkg/logging"
)

// Dispatcher resolves a RequestEnvelope against a session's capability
// registry and runs the matching pipeline, the same deterministic
// name-to-handler resolution style used by request-routing servers more
// generally, generalized here to the capability/action model.
type Dispatcher struct {
	session *session.Session
}

// New builds a Dispatcher bound to sess.
func New(sess *session.Session) *Dispatcher {
	return &Dispatcher{session: sess}
}

// Dispatch never returns a zero-value ResponseEntity: every path below
// produces a Success or a Failure.
func (d *Dispatcher) Dispatch(ctx context.Context, req envelope.RequestEnvelope) envelope.ResponseEntity {
	if !d.session.AcceptsDispatch() {
		return envelope.Failure(envelope.StatusServiceUnavailable, nil, "session is not accepting dispatches")
	}

	end := d.session.BeginDispatch()
	defer end()

	cap, err := d.session.Capabilities.Get(req.Capability)
	if err != nil {
		return envelope.Failure(envelope.StatusNotFound, err, "unknown capability")
	}

	pipelineDef, ok := cap.PipelineFor(req.Action)
	if !ok {
		if req.ProtocolMetadata.ActionKind == envelope.ActionKindTool && cap.HasTool(req.Action) {
			return envelope.Failure(envelope.StatusExecutionFailed, nil, "tool is declared but has no bound pipeline")
		}
		return envelope.Failure(envelope.StatusNotFound, nil, "unknown action")
	}

	if req.Context != nil && req.Context.Deadline != nil && req.Context.DeadlineExceeded(time.Now()) {
		return envelope.Failure(envelope.StatusServiceUnavailable, nil, "deadline exceeded")
	}

	pipeCtx := &pipeline.Context{
		Go:         ctx,
		Capability: cap.Name,
		Action:     req.Action,
		Request:    req.Context,
	}

	output, err := pipelineDef.Run(pipeCtx, req.Payload)
	if err != nil {
		status := classify(err)
		logging.Debug("dispatcher", "capability=%s action=%s failed: %v (status=%s)", cap.Name, req.Action, err, status)
		return envelope.Failure(status, err, "")
	}

	return envelope.Success(output, nil)
}

// classify maps a pipeline failure onto the closed set of response
// statuses. Order matters: more specific error kinds
// are checked before the catch-all.
func classify(err error) envelope.Status {
	var verrs *pipeline.ValidationErrors
	if errors.As(err, &verrs) {
		return envelope.StatusBadRequest
	}
	var verr *pipeline.ValidationError
	if errors.As(err, &verr) {
		return envelope.StatusBadRequest
	}

	var aerr *pipeline.AuthorizationError
	if errors.As(err, &aerr) {
		if aerr.Authenticated {
			return envelope.StatusForbidden
		}
		return envelope.StatusUnauthorized
	}

	var nferr *pipeline.NotFoundError
	if errors.As(err, &nferr) {
		return envelope.StatusNotFound
	}

	var perr *pipeline.TimeoutError
	if errors.As(err, &perr) {
		return envelope.StatusServiceUnavailable
	}
	var qerr *queryengine.TimeoutError
	if errors.As(err, &qerr) {
		return envelope.StatusServiceUnavailable
	}
	var serr *sourceprovider.TimeoutError
	if errors.As(err, &serr) {
		return envelope.StatusServiceUnavailable
	}

	return envelope.StatusExecutionFailed
}
