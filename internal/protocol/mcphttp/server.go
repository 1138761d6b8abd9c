package mcphttp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cheshire-mcp/cheshire/internal/capability"
	"github.com/cheshire-mcp/cheshire/internal/dispatcher"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// NewServer builds an mcp-go MCPServer exposing cap's tools, resources,
// resource templates, and prompts, each wired through adapter and d to
// the dispatcher.
func NewServer(name, version string, cap *capability.Capability, d *dispatcher.Dispatcher) *mcpserver.MCPServer {
	adapter := New()
	srv := mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(true),
	)

	var tools []mcpserver.ServerTool
	for _, t := range cap.Actions.Tools {
		tools = append(tools, mcpserver.ServerTool{
			Tool:    mcp.Tool{Name: t.Name, Description: t.Description, InputSchema: toInputSchema(t.Parameters)},
			Handler: toolHandler(cap.Name, t.Name, adapter, d),
		})
	}
	if len(tools) > 0 {
		srv.AddTools(tools...)
	}

	var resources []mcpserver.ServerResource
	for _, r := range cap.Actions.Resources {
		resources = append(resources, mcpserver.ServerResource{
			Resource: mcp.Resource{URI: r.URI, Name: r.Name, MIMEType: r.MimeType},
			Handler:  resourceHandler(cap.Name, r.URI, adapter, d),
		})
	}
	if len(resources) > 0 {
		srv.AddResources(resources...)
	}

	for _, rt := range cap.Actions.ResourceTemplates {
		srv.AddResourceTemplate(
			mcp.ResourceTemplate{URITemplate: mcp.NewURITemplate(rt.URITemplate), Name: rt.Name, MIMEType: rt.MimeType},
			resourceHandler(cap.Name, rt.URITemplate, adapter, d),
		)
	}

	var prompts []mcpserver.ServerPrompt
	for _, p := range cap.Actions.Prompts {
		prompts = append(prompts, mcpserver.ServerPrompt{
			Prompt:  mcp.Prompt{Name: p.Name, Description: p.Description, Arguments: toPromptArguments(p.Arguments)},
			Handler: promptHandler(cap.Name, p.Name, adapter, d),
		})
	}
	if len(prompts) > 0 {
		srv.AddPrompts(prompts...)
	}

	return srv
}

// NewHTTPHandler wraps srv in mcp-go's streamable-HTTP transport.
func NewHTTPHandler(srv *mcpserver.MCPServer) http.Handler {
	return mcpserver.NewStreamableHTTPServer(srv)
}

func toInputSchema(params []capability.ParameterMetadata) mcp.ToolInputSchema {
	properties := make(map[string]interface{}, len(params))
	var required []string
	for _, p := range params {
		prop := map[string]interface{}{"type": p.Type, "description": p.Description}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return mcp.ToolInputSchema{Type: "object", Properties: properties, Required: required}
}

func toPromptArguments(params []capability.ParameterMetadata) []mcp.PromptArgument {
	args := make([]mcp.PromptArgument, len(params))
	for i, p := range params {
		args[i] = mcp.PromptArgument{Name: p.Name, Description: p.Description, Required: p.Required}
	}
	return args
}

func toolHandler(capName, toolName string, adapter *Adapter, d *dispatcher.Dispatcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]interface{}{}
		if m, ok := req.Params.Arguments.(map[string]interface{}); ok {
			args = m
		}
		wire := &WireRequest{Kind: KindCallTool, Name: toolName, Arguments: args, Meta: metaFields(req.Params.Meta)}
		result, err := runDispatch(ctx, capName, adapter, d, wire)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		wr := result.(*WireResult)
		if wr.IsError {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %s", wr.Message)), nil
		}
		out := &mcp.CallToolResult{
			Content:           []mcp.Content{mcp.NewTextContent(wr.Text)},
			StructuredContent: wr.Structured,
		}
		out.Meta = wr.Meta
		return out, nil
	}
}

func promptHandler(capName, promptName string, adapter *Adapter, d *dispatcher.Dispatcher) func(context.Context, mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := map[string]interface{}{}
		for k, v := range req.Params.Arguments {
			args[k] = v
		}
		wire := &WireRequest{Kind: KindGetPrompt, Name: promptName, Arguments: args, Meta: metaFields(req.Params.Meta)}
		result, err := runDispatch(ctx, capName, adapter, d, wire)
		if err != nil {
			return nil, err
		}
		wr := result.(*WireResult)
		if wr.IsError {
			return nil, fmt.Errorf("prompt %s: %s", promptName, wr.Message)
		}
		out := &mcp.GetPromptResult{
			Messages: []mcp.PromptMessage{{Role: mcp.RoleUser, Content: mcp.NewTextContent(wr.Text)}},
		}
		out.Meta = wr.Meta
		return out, nil
	}
}

func resourceHandler(capName, uri string, adapter *Adapter, d *dispatcher.Dispatcher) func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		wire := &WireRequest{Kind: KindReadResource, Name: req.Params.URI, Meta: metaFields(req.Params.Meta)}
		result, err := runDispatch(ctx, capName, adapter, d, wire)
		if err != nil {
			return nil, err
		}
		wr := result.(*WireResult)
		if wr.IsError {
			return nil, fmt.Errorf("resource %s: %s", uri, wr.Message)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: wr.URI, MIMEType: wr.MIMEType, Text: wr.Text},
		}, nil
	}
}

// metaFields flattens an incoming mcp-go request's _meta block into the
// plain map WireRequest/WireResult carry it as. Returns nil for a request
// with no meta rather than an empty, allocated map.
func metaFields(m *mcp.Meta) map[string]interface{} {
	if m == nil || len(m.AdditionalFields) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(m.AdditionalFields))
	for k, v := range m.AdditionalFields {
		out[k] = v
	}
	return out
}

func runDispatch(ctx context.Context, capName string, adapter *Adapter, d *dispatcher.Dispatcher, wire *WireRequest) (interface{}, error) {
	env, err := adapter.ToRequestEnvelope(wire, capName)
	if err != nil {
		return nil, err
	}
	resp := d.Dispatch(ctx, env)
	return adapter.FromProcessingResult(wire, resp)
}
