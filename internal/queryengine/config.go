package queryengine

// QueryEngineConfig is the wire-level configuration for one named query
// engine: which sources it may read from and its engine-type-specific
// settings. Sources is declared before Config in struct field order, to
// pin the decision between the two equally plausible orderings left open
// upstream. AsMap returns a Go map, which carries no key order.
type QueryEngineConfig struct {
	Type    string
	Sources []string
	Config  map[string]interface{}
}

// AsMap returns the wire-level representation as an unordered map.
func (c QueryEngineConfig) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"type":    c.Type,
		"sources": c.Sources,
		"config":  c.Config,
	}
}
