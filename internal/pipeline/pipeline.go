// Package pipeline implements the ordered pre-processor → executor →
// post-processor chain. A pipeline is stateless across requests: only the
// Context carries per-invocation state, so every request gets its own
// Context instead of sharing mutable attributes across calls.
package pipeline

import (
	"context"
	"fmt"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
)

// Context is the per-invocation state threaded through every step of a
// pipeline run. It wraps the request's envelope.RequestContext (which
// already owns the concurrency-safe, defensively-copied Attributes bag) and
// adds the capability/action names the pipeline is running for.
type Context struct {
	Go         context.Context
	Capability string
	Action     string
	Request    *envelope.RequestContext
}

// Attributes returns the per-request attribute bag.
func (c *Context) Attributes() *envelope.Attributes {
	return c.Request.Attributes
}

// Input is what flows into and out of pre-processors and into the
// executor. Output is what flows out of the executor and through
// post-processors. Both are deliberately interface{}: pre-processors are a
// same-type transform so there is exactly one Input type per
// run, and likewise exactly one Output type; the pipeline does not know or
// care what concrete type a given capability's steps agree on.
type Input = interface{}
type Output = interface{}

// PreProcessor validates, normalizes, enriches, or authorizes the input.
// Implementations must return a new value rather than mutate in place.
type PreProcessor interface {
	Name() string
	Process(ctx *Context, input Input) (Input, error)
}

// Executor is the single business-logic step of a pipeline: it turns the
// (possibly pre-processed) input into output, typically by building a
// LogicalQuery and calling a QueryEngine.
type Executor interface {
	Name() string
	Execute(ctx *Context, input Input) (Output, error)
}

// PostProcessor formats, filters, paginates, or aggregates the executor's
// output.
type PostProcessor interface {
	Name() string
	Process(ctx *Context, output Output) (Output, error)
}

// StepKind identifies which part of a Definition a StepSpec configures.
type StepKind string

const (
	StepKindPreProcessor  StepKind = "pre"
	StepKindExecutor      StepKind = "executor"
	StepKindPostProcessor StepKind = "post"
)

// StepSpec is the opaque configuration a step was constructed from,
// retained for diagnostics.
type StepSpec struct {
	Kind   StepKind
	Type   string
	Name   string
	Config map[string]interface{}
}

// Definition is an ordered pre-processor list, exactly one executor, and an
// ordered post-processor list. Built once at capability activation and
// immutable thereafter.
type Definition struct {
	PreProcessors  []PreProcessor
	Exec           Executor
	PostProcessors []PostProcessor
	Specs          []StepSpec
}

// NewDefinition validates that exactly one executor is supplied and
// returns a ready-to-run Definition.
func NewDefinition(pre []PreProcessor, exec Executor, post []PostProcessor) (*Definition, error) {
	if exec == nil {
		return nil, fmt.Errorf("pipeline: a Definition requires exactly one executor")
	}
	return &Definition{PreProcessors: pre, Exec: exec, PostProcessors: post}, nil
}

// Run executes the pre-processors in order, then the executor, then the
// post-processors in order. Any step failure aborts the chain: a failing
// pre-processor or executor skips every remaining step including all
// post-processors.
func (d *Definition) Run(ctx *Context, input Input) (Output, error) {
	cur := input
	for _, step := range d.PreProcessors {
		out, err := step.Process(ctx, cur)
		if err != nil {
			return nil, &StepError{Stage: "pre-process", StepName: step.Name(), Err: err}
		}
		cur = out
	}

	out, err := d.Exec.Execute(ctx, cur)
	if err != nil {
		return nil, &StepError{Stage: "execute", StepName: d.Exec.Name(), Err: err}
	}

	for _, step := range d.PostProcessors {
		o, err := step.Process(ctx, out)
		if err != nil {
			return nil, &StepError{Stage: "post-process", StepName: step.Name(), Err: err}
		}
		out = o
	}
	return out, nil
}

// StepError wraps a step failure with the stage and step name that
// produced it, so the dispatcher can classify it without needing to know
// about concrete step implementations.
type StepError struct {
	Stage    string
	StepName string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("pipeline: %s step %q failed: %v", e.Stage, e.StepName, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
