// Package sourceprovider defines the SourceProvider SPI: an
// opaque data-source adapter with a fixed lifecycle — open, zero or more
// concurrent execute calls, close — and a sealed failure taxonomy.
package sourceprovider

import "context"

// Row is one result record, keyed by column name.
type Row map[string]interface{}

// Rowset is the ordered result of executing a SourceQuery.
type Rowset struct {
	Columns []string
	Rows    []Row
}

// SourceQuery is the provider-facing query the engine's EXECUTE stage
// issues against a physical plan fragment bound to this source. It is
// intentionally minimal and source-type-specific: for a "postgres"
// provider, Body is SQL text and Args are positional parameters.
type SourceQuery struct {
	Body string
	Args []interface{}
}

// Config is the typed configuration surface a provider exposes once
// opened, read back by the engine/diagnostics.
type Config interface {
	// AsMap renders the configuration back to a raw key/value map, the
	// inverse of what the owning Factory parsed it from.
	AsMap() map[string]interface{}
}

// Provider is the SourceProvider SPI contract.
type Provider interface {
	Name() string
	Config() Config
	Open(ctx context.Context) error
	Execute(ctx context.Context, query SourceQuery) (*Rowset, error)
	Close(ctx context.Context) error
}

// Factory produces a typed Provider from a name and a raw configuration
// map.
type Factory interface {
	// Type is the provider type name this factory builds, e.g. "postgres".
	Type() string
	New(name string, rawConfig map[string]interface{}) (Provider, error)
}
