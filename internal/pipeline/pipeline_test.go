package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/cheshire-mcp/cheshire/internal/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fnPre struct {
	name string
	fn   func(*Context, Input) (Input, error)
}

func (f fnPre) Name() string { return f.name }
func (f fnPre) Process(ctx *Context, in Input) (Input, error) { return f.fn(ctx, in) }

type fnExec struct {
	name string
	fn   func(*Context, Input) (Output, error)
}

func (f fnExec) Name() string { return f.name }
func (f fnExec) Execute(ctx *Context, in Input) (Output, error) { return f.fn(ctx, in) }

type fnPost struct {
	name string
	fn   func(*Context, Output) (Output, error)
}

func (f fnPost) Name() string { return f.name }
func (f fnPost) Process(ctx *Context, out Output) (Output, error) { return f.fn(ctx, out) }

func newTestContext() *Context {
	return &Context{
		Go:      context.Background(),
		Request: &envelope.RequestContext{Attributes: envelope.NewAttributes()},
	}
}

func TestDefinitionRunsStepsInOrder(t *testing.T) {
	var order []string
	pre1 := fnPre{"p1", func(c *Context, in Input) (Input, error) {
		order = append(order, "p1")
		return in.(int) + 1, nil
	}}
	pre2 := fnPre{"p2", func(c *Context, in Input) (Input, error) {
		order = append(order, "p2")
		return in.(int) + 10, nil
	}}
	exec := fnExec{"e", func(c *Context, in Input) (Output, error) {
		order = append(order, "e")
		return in.(int) * 2, nil
	}}
	post := fnPost{"post1", func(c *Context, out Output) (Output, error) {
		order = append(order, "post1")
		return out.(int) + 1000, nil
	}}

	def, err := NewDefinition([]PreProcessor{pre1, pre2}, exec, []PostProcessor{post})
	require.NoError(t, err)

	out, err := def.Run(newTestContext(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1022, out) // ((0+1+10)*2)+1000
	assert.Equal(t, []string{"p1", "p2", "e", "post1"}, order)
}

func TestFailingPreProcessorSkipsExecutorAndPostProcessors(t *testing.T) {
	execCalled := false
	postCalled := false
	pre := fnPre{"bad", func(c *Context, in Input) (Input, error) {
		return nil, &ValidationError{Field: "id", Message: "required"}
	}}
	exec := fnExec{"e", func(c *Context, in Input) (Output, error) {
		execCalled = true
		return nil, nil
	}}
	post := fnPost{"post", func(c *Context, out Output) (Output, error) {
		postCalled = true
		return out, nil
	}}

	def, err := NewDefinition([]PreProcessor{pre}, exec, []PostProcessor{post})
	require.NoError(t, err)

	_, err = def.Run(newTestContext(), "x")
	require.Error(t, err)
	assert.False(t, execCalled)
	assert.False(t, postCalled)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "pre-process", stepErr.Stage)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
}

func TestFailingExecutorSkipsPostProcessors(t *testing.T) {
	postCalled := false
	exec := fnExec{"e", func(c *Context, in Input) (Output, error) {
		return nil, errors.New("boom")
	}}
	post := fnPost{"post", func(c *Context, out Output) (Output, error) {
		postCalled = true
		return out, nil
	}}
	def, err := NewDefinition(nil, exec, []PostProcessor{post})
	require.NoError(t, err)

	_, err = def.Run(newTestContext(), nil)
	require.Error(t, err)
	assert.False(t, postCalled)
}

func TestNewDefinitionRequiresExactlyOneExecutor(t *testing.T) {
	_, err := NewDefinition(nil, nil, nil)
	require.Error(t, err)
}

func TestPipelineIsPureOverInputAndContext(t *testing.T) {
	// Running the same definition twice with equal inputs yields equal
	// outputs, modulo context-dependent values.
	exec := fnExec{"double", func(c *Context, in Input) (Output, error) {
		return in.(int) * 2, nil
	}}
	def, err := NewDefinition(nil, exec, nil)
	require.NoError(t, err)

	out1, err := def.Run(newTestContext(), 21)
	require.NoError(t, err)
	out2, err := def.Run(newTestContext(), 21)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}
