package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cheshire-mcp/cheshire/internal/capability"
)

// HandleState is a ServerHandle's own init→start→stop lifecycle position.
type HandleState string

const (
	HandleInit    HandleState = "init"
	HandleStarted HandleState = "started"
	HandleStopped HandleState = "stopped"
)

// Handle represents one capability's endpoint(s) on a shared Container.
// Binding selects which kind of servlet context Start mounts: HTTP_JSON and
// MCP_JSON_RPC both ride a Container, MCP_STDIO rides a StdioContainer
// instead.
type Handle struct {
	CapabilityName string
	Binding        capability.Binding
	MountPath      string
	Handler        http.Handler

	container     *Container
	stdio         *StdioContainer
	stdioServer   StdioServer
	state         HandleState
}

// NewHTTPHandle builds a handle that will mount Handler at MountPath on
// container once Started.
func NewHTTPHandle(capName string, binding capability.Binding, mountPath string, handler http.Handler, container *Container) *Handle {
	return &Handle{
		CapabilityName: capName,
		Binding:        binding,
		MountPath:      mountPath,
		Handler:        handler,
		container:      container,
		state:          HandleInit,
	}
}

// NewStdioHandle builds a handle bound to a single-tenant stdio container.
func NewStdioHandle(capName string, stdio *StdioContainer, server StdioServer) *Handle {
	return &Handle{
		CapabilityName: capName,
		Binding:        capability.BindingMCPStdio,
		stdio:          stdio,
		stdioServer:    server,
		state:          HandleInit,
	}
}

// Start attaches to the container, mounts the handler (HTTP/MCP-HTTP
// bindings) or registers against the stdio container (MCP_STDIO), then
// starts the container.
func (h *Handle) Start(ctx context.Context) error {
	switch h.Binding {
	case capability.BindingHTTPJSON, capability.BindingMCPJSONRPC:
		if h.container == nil {
			return fmt.Errorf("transport: handle for %q has no container", h.CapabilityName)
		}
		h.container.Attach()
		if err := h.container.Register(h.MountPath, h.Handler); err != nil {
			return err
		}
		if err := h.container.Start(ctx); err != nil {
			return err
		}
	case capability.BindingMCPStdio:
		if h.stdio == nil {
			return fmt.Errorf("transport: handle for %q has no stdio container", h.CapabilityName)
		}
		if err := h.stdio.Register(ctx, h.CapabilityName, h.stdioServer); err != nil {
			return err
		}
	default:
		return fmt.Errorf("transport: unsupported binding %q", h.Binding)
	}
	h.state = HandleStarted
	return nil
}

// Stop asks the underlying container to ref-counted-stop, or releases the
// stdio container.
func (h *Handle) Stop(ctx context.Context) error {
	if h.state != HandleStarted {
		return nil
	}
	defer func() { h.state = HandleStopped }()

	switch h.Binding {
	case capability.BindingHTTPJSON, capability.BindingMCPJSONRPC:
		return h.container.Stop(ctx)
	case capability.BindingMCPStdio:
		h.stdio.Release()
		return nil
	default:
		return fmt.Errorf("transport: unsupported binding %q", h.Binding)
	}
}

// State reports the handle's own lifecycle position.
func (h *Handle) State() HandleState { return h.state }
