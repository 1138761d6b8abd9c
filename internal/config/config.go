// Package config defines CheshireConfig, the in-memory structure a
// collaborator supplies to build a running Session. The core never reads
// files itself: whatever process loads YAML/JSON off disk is responsible
// for resolving capability action/pipeline stubs into concrete
// capability.Actions and pipeline.Definition values before handing this
// structure to Build.
//
// Typed structs with both json and yaml tags, a root struct aggregating
// named sub-maps, generalized to Cheshire's
// capability/source/query-engine/exposure/transport maps.
package config

import (
	"encoding/json"

	"github.com/cheshire-mcp/cheshire/internal/capability"
	"github.com/cheshire-mcp/cheshire/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Info carries the server's own identity, echoed in MCP initialize
// handshakes and REST diagnostics.
type Info struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// SourceConfig is the raw, named configuration for one source provider:
// which factory type builds it and its type-specific settings.
type SourceConfig struct {
	Type   string                 `json:"type" yaml:"type"`
	Config map[string]interface{} `json:"config" yaml:"config"`
}

// CapabilityConfig is one named capability's declaration. ExposureRef and
// TransportRef name entries in CheshireConfig's Exposures/Transports maps;
// Sources and QueryEngine name entries in its Sources/QueryEngines maps.
// Actions and Pipelines are not JSON/YAML-tagged: the request-processing design describes them as
// "file-reference stubs that configuration loading already resolved" by
// the time this structure reaches the core, so they travel as concrete
// in-memory values rather than wire data.
type CapabilityConfig struct {
	Domain       string   `json:"domain" yaml:"domain"`
	ExposureRef  string   `json:"exposure" yaml:"exposure"`
	TransportRef string   `json:"transport" yaml:"transport"`
	Sources      []string `json:"sources" yaml:"sources"`
	QueryEngine  string   `json:"queryEngine" yaml:"queryEngine"`

	Actions   capability.Actions              `json:"-" yaml:"-"`
	Pipelines map[string]*pipeline.Definition `json:"-" yaml:"-"`
}

// CheshireConfig is the full structure the core consumes to build a
// Session: named capabilities, sources, query engines, exposures, and
// transports.
type CheshireConfig struct {
	Info         Info                        `json:"info" yaml:"info"`
	Capabilities map[string]CapabilityConfig  `json:"capabilities" yaml:"capabilities"`
	Sources      map[string]SourceConfig      `json:"sources" yaml:"sources"`
	QueryEngines map[string]QueryEngineConfig `json:"queryEngines" yaml:"queryEngines"`
	Exposures    map[string]capability.Exposure `json:"exposures" yaml:"exposures"`
	Transports   map[string]capability.Transport `json:"transports" yaml:"transports"`
}

// QueryEngineConfig mirrors queryengine.QueryEngineConfig's wire shape
// (Type, Sources, Config) without importing internal/queryengine from the
// config package's public struct field — kept as a distinct type here so
// config stays the single place wire-format struct tags live. Build does
// not pass that AsMap() shape to the factory registry: it hands the factory
// a flat map with the resolved providers under "sources", the first source
// name under "defaultSource", and Config's entries merged in at the top
// level.
type QueryEngineConfig struct {
	Type    string                 `json:"type" yaml:"type"`
	Sources []string               `json:"sources" yaml:"sources"`
	Config  map[string]interface{} `json:"config" yaml:"config"`
}

// AsMap renders the structure's wire-visible (JSON/YAML-tagged) fields to
// a plain map, for a pretty-printed JSON diagnostics form. Actions/Pipelines
// are omitted since they carry live Go values, not wire data.
func (c CheshireConfig) AsMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PrettyJSON renders the same wire-visible fields as indented JSON.
func (c CheshireConfig) PrettyJSON() (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToYAML renders the same wire-visible fields as YAML. Operates purely on
// in-memory bytes: callers that load configuration from disk read the file
// themselves and hand FromYAML the contents, keeping file I/O out of the
// core.
func (c CheshireConfig) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// FromYAML parses YAML bytes into a CheshireConfig. Actions and Pipelines
// are never populated this way (they carry live Go values, not wire data)
// — a loader that accepts YAML-described capabilities must resolve those
// fields itself before the config reaches Builder.Build.
func FromYAML(data []byte) (CheshireConfig, error) {
	var c CheshireConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return CheshireConfig{}, err
	}
	return c, nil
}
