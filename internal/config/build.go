package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cheshire-mcp/cheshire/internal/capability"
	"github.com/cheshire-mcp/cheshire/internal/dispatcher"
	"github.com/cheshire-mcp/cheshire/internal/protocol/mcphttp"
	"github.com/cheshire-mcp/cheshire/internal/protocol/mcpstdio"
	"github.com/cheshire-mcp/cheshire/internal/protocol/rest"
	"github.com/cheshire-mcp/cheshire/internal/queryengine"
	"github.com/cheshire-mcp/cheshire/internal/session"
	"github.com/cheshire-mcp/cheshire/internal/sourceprovider"
	"github.com/cheshire-mcp/cheshire/internal/transport"
)

// Builder wires a CheshireConfig into a running Session: source providers
// opened first, query engines built against them, capabilities registered
// and bound to transport handles last — the mirror image of Session.Stop's
// capabilities→query-engines→source-providers→transports shutdown order.
type Builder struct {
	QueryEngineFactories    *queryengine.FactoryRegistry
	SourceProviderFactories *sourceprovider.FactoryRegistry
	BasePath                string
	CORSOrigins             []string
}

// NewBuilder wires qf/sf as the closed factory sets Build draws from.
func NewBuilder(qf *queryengine.FactoryRegistry, sf *sourceprovider.FactoryRegistry) *Builder {
	return &Builder{
		QueryEngineFactories:    qf,
		SourceProviderFactories: sf,
		BasePath:                "/api",
	}
}

// Build constructs a Session plus the set of transport.Handles that expose
// its capabilities, from cfg. It does not Start either the session or the
// handles; callers sequence that themselves.
func (b *Builder) Build(ctx context.Context, cfg CheshireConfig) (*session.Session, []*transport.Handle, error) {
	sess := session.New()

	providers := make(map[string]sourceprovider.Provider, len(cfg.Sources))
	for name, sc := range cfg.Sources {
		provider, err := b.SourceProviderFactories.Build(sc.Type, name, sc.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("config: building source %q: %w", name, err)
		}
		if err := provider.Open(ctx); err != nil {
			return nil, nil, fmt.Errorf("config: opening source %q: %w", name, err)
		}
		if err := sess.SourceProviders.Register(name, provider); err != nil {
			return nil, nil, fmt.Errorf("config: registering source %q: %w", name, err)
		}
		providers[name] = provider
	}

	for name, qec := range cfg.QueryEngines {
		sources := make(map[string]sourceprovider.Provider, len(qec.Sources))
		for _, sn := range qec.Sources {
			provider, ok := providers[sn]
			if !ok {
				return nil, nil, fmt.Errorf("config: query engine %q references unknown source %q", name, sn)
			}
			sources[sn] = provider
		}

		rawConfig := map[string]interface{}{"sources": sources}
		if len(qec.Sources) > 0 {
			rawConfig["defaultSource"] = qec.Sources[0]
		}
		for k, v := range qec.Config {
			rawConfig[k] = v
		}

		engine, err := b.QueryEngineFactories.Build(qec.Type, name, rawConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("config: building query engine %q: %w", name, err)
		}
		if err := sess.QueryEngines.Register(name, engine); err != nil {
			return nil, nil, fmt.Errorf("config: registering query engine %q: %w", name, err)
		}
	}

	d := dispatcher.New(sess)
	restAdapter := rest.New(b.BasePath)

	containers := make(map[string]*transport.Container)
	var stdioContainer *transport.StdioContainer
	var handles []*transport.Handle

	for name, cc := range cfg.Capabilities {
		exposure, ok := cfg.Exposures[cc.ExposureRef]
		if !ok {
			return nil, nil, fmt.Errorf("config: capability %q references unknown exposure %q", name, cc.ExposureRef)
		}

		cap := &capability.Capability{
			Name:        name,
			Domain:      cc.Domain,
			Exposure:    exposure,
			Sources:     cc.Sources,
			QueryEngine: cc.QueryEngine,
			Actions:     cc.Actions,
			Pipelines:   cc.Pipelines,
		}

		if exposure.Binding != capability.BindingMCPStdio {
			tr, ok := cfg.Transports[cc.TransportRef]
			if !ok {
				return nil, nil, fmt.Errorf("config: capability %q references unknown transport %q", name, cc.TransportRef)
			}
			cap.Transport = tr
		}

		if err := sess.RegisterCapability(cap); err != nil {
			return nil, nil, fmt.Errorf("config: registering capability %q: %w", name, err)
		}

		handle, err := b.buildHandle(cfg.Info, cap, cc.TransportRef, d, restAdapter, containers, &stdioContainer)
		if err != nil {
			return nil, nil, fmt.Errorf("config: binding capability %q: %w", name, err)
		}
		handles = append(handles, handle)
	}

	for _, c := range containers {
		sess.RegisterTransport(c)
	}

	return sess, handles, nil
}

// buildHandle constructs the transport.Handle matching cap.Exposure.Binding,
// sharing one transport.Container per transport name so capabilities on
// the same transport share a listener, and lazily allocating the single
// process-wide stdio container the first MCP_STDIO capability needs.
func (b *Builder) buildHandle(
	info Info,
	cap *capability.Capability,
	transportRef string,
	d *dispatcher.Dispatcher,
	restAdapter *rest.Adapter,
	containers map[string]*transport.Container,
	stdioContainer **transport.StdioContainer,
) (*transport.Handle, error) {
	switch cap.Exposure.Binding {
	case capability.BindingHTTPJSON:
		container := containerFor(containers, transportRef, cap.Transport)
		router := rest.NewRouter(b.BasePath, cap.Name, restAdapter, d, b.CORSOrigins)
		return transport.NewHTTPHandle(cap.Name, cap.Exposure.Binding, "/", router, container), nil

	case capability.BindingMCPJSONRPC:
		container := containerFor(containers, transportRef, cap.Transport)
		mcpSrv := mcphttp.NewServer(info.Name, info.Version, cap, d)
		handler := mcphttp.NewHTTPHandler(mcpSrv)
		mountPath := mcpMountPath(cap)
		return transport.NewHTTPHandle(cap.Name, cap.Exposure.Binding, mountPath, handler, container), nil

	case capability.BindingMCPStdio:
		if *stdioContainer == nil {
			*stdioContainer = transport.NewStdioContainer(os.Stdin, os.Stdout)
		}
		server := mcpstdio.New(info.Name, info.Version, cap, d)
		return transport.NewStdioHandle(cap.Name, *stdioContainer, server), nil

	default:
		return nil, fmt.Errorf("unsupported binding %q", cap.Exposure.Binding)
	}
}

func containerFor(containers map[string]*transport.Container, transportRef string, tr capability.Transport) *transport.Container {
	if c, ok := containers[transportRef]; ok {
		return c
	}
	idle := time.Duration(tr.IdleTimeout) * time.Second
	if idle <= 0 {
		idle = 60 * time.Second
	}
	c := transport.NewContainer(transportRef, tr.Host, tr.Port, transport.TLSOptions(tr.TLS), idle)
	containers[transportRef] = c
	return c
}

// mcpMountPath reads an explicit "path" exposure option, falling back to
// "/mcp/{capability}".
func mcpMountPath(cap *capability.Capability) string {
	if v, ok := cap.Exposure.Options["path"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "/mcp/" + cap.Name
}
