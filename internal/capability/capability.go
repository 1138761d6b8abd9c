// Package capability defines the Capability entity and its declared
// actions (tools, resources, resource templates, prompts). A Capability
// is immutable after registration; it is created when registered with a
// Session and destroyed on session shutdown.
package capability

import "github.com/cheshire-mcp/cheshire/internal/pipeline"

// Binding identifies how a capability is exposed over the wire.
type Binding string

const (
	BindingHTTPJSON    Binding = "HTTP_JSON"
	BindingMCPJSONRPC  Binding = "MCP_JSON_RPC"
	BindingMCPStdio    Binding = "MCP_STDIO"
)

// Exposure describes how a capability is reached from outside the process:
// a binding plus binding-specific options (e.g. REST base path, MCP
// keep-alive interval).
type Exposure struct {
	Binding Binding
	Options map[string]interface{}
}

// TLSConfig parameterizes TLS for an HTTP transport. TLS is off by default
// but fully parameterized
type TLSConfig struct {
	Enabled            bool
	KeystorePath       string
	TruststorePath     string
	CipherIncludeList  []string
	CipherExcludeList  []string
	RequireClientAuth  bool
}

// Transport describes the physical listener a capability's exposure binds
// to: an HTTP port/host (shared across capabilities on the same port) or a
// stdio pair (non-shared, ).
type Transport struct {
	Port        int    // 0 for stdio transports
	Host        string // default "0.0.0.0"
	TLS         TLSConfig
	MinThreads  int
	MaxThreads  int
	IdleTimeout int // seconds
}

// ParameterMetadata describes one named argument of a tool or prompt.
type ParameterMetadata struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     interface{}
	Enum        []string
}

// Tool describes one invocable action exposed by a capability.
type Tool struct {
	URI         string
	Name        string
	Description string
	Parameters  []ParameterMetadata
	Metadata    map[string]interface{}
}

// Resource describes one readable, static-URI action.
type Resource struct {
	URI      string
	Name     string
	MimeType string
}

// ResourceTemplate describes a readable action whose URI contains
// "{placeholder}" segments resolved per-request.
type ResourceTemplate struct {
	URITemplate string
	Name        string
	MimeType    string
}

// Prompt describes a named, parameterized prompt action.
type Prompt struct {
	Name        string
	Description string
	Arguments   []ParameterMetadata
}

// Actions is the full declared API surface of a capability.
type Actions struct {
	Tools             []Tool
	Resources         []Resource
	ResourceTemplates []ResourceTemplate
	Prompts           []Prompt
}

// Capability is a named, domain-scoped bundle of actions with its own
// pipelines, query engine, sources, exposure, and transport. Immutable
// after registration: its name is unique across the session, enforced by
// the registry this Capability is registered into.
type Capability struct {
	Name        string
	Domain      string
	Exposure    Exposure
	Transport   Transport
	Sources     []string // ordered set of source-provider names
	QueryEngine string   // query engine name
	Actions     Actions
	// Pipelines maps an action name to its pipeline definition.
	Pipelines map[string]*pipeline.Definition
}

// PipelineFor returns the pipeline definition bound to actionName, or false
// if the capability has no such action.
func (c *Capability) PipelineFor(actionName string) (*pipeline.Definition, bool) {
	p, ok := c.Pipelines[actionName]
	return p, ok
}

// HasTool reports whether name is declared as a tool on this capability —
// used by the dispatcher when protocol metadata indicates an MCP tool
// call.
func (c *Capability) HasTool(name string) bool {
	for _, t := range c.Actions.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}
