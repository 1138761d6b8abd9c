package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// StdioServer is whatever stdio-bound MCP server implementation a
// ServerHandle wants to run over this container's stdin/stdout pair.
// Mirrors mcp-go's StdioServer.Listen(ctx, in, out) shape so an
// mcpserver.NewStdioServer(...) satisfies this directly.
type StdioServer interface {
	Listen(ctx context.Context, in io.Reader, out io.Writer) error
}

// StdioContainer is the non-shared counterpart to Container: exactly one
// McpServer may be registered against a process's stdin/stdout, since a
// second one would race for the same bytes.
type StdioContainer struct {
	mu         sync.Mutex
	in         io.Reader
	out        io.Writer
	registered bool
	name       string
	cancel     context.CancelFunc
	loopErr    chan error
}

// NewStdioContainer wraps the process's stdin/stdout (or test doubles).
func NewStdioContainer(in io.Reader, out io.Writer) *StdioContainer {
	return &StdioContainer{in: in, out: out, loopErr: make(chan error, 1)}
}

// Register claims the container for server and starts its request/response
// loop on a background goroutine (the loop blocks for the container's
// lifetime, so Register itself returns as soon as registration succeeds).
// The loop runs until ctx is cancelled or it exits on its own; LoopErr
// receives its terminal error, if any.
func (c *StdioContainer) Register(ctx context.Context, name string, server StdioServer) error {
	c.mu.Lock()
	if c.registered {
		c.mu.Unlock()
		return fmt.Errorf("transport: stdio container already bound to %q", c.name)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.registered = true
	c.name = name
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		if err := server.Listen(loopCtx, c.in, c.out); err != nil {
			select {
			case c.loopErr <- err:
			default:
			}
		}
	}()
	return nil
}

// LoopErr returns a channel that receives the stdio loop's terminal error,
// if it exits with one. Reads beyond the first are never satisfied.
func (c *StdioContainer) LoopErr() <-chan error { return c.loopErr }

// IsRegistered reports whether a server currently owns this container.
func (c *StdioContainer) IsRegistered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registered
}

// Release cancels the running loop's context and frees the container for a
// future registration. Used by tests and by a handle's Stop path; a live
// process normally exits instead.
func (c *StdioContainer) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.registered = false
	c.name = ""
	c.cancel = nil
}
