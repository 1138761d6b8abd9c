package queryengine

import "github.com/cheshire-mcp/cheshire/internal/sourceprovider"

// StagedEngineFactory builds StagedEngines from raw configuration, the
// sole concrete Factory this package ships. rawConfig carries
// already-resolved sourceprovider.Provider instances under "sources"
// rather than raw connection strings — the collaborator that assembles a
// session's CheshireConfig resolves source names to live providers before
// calling Build, since this package never reads files itself.
type StagedEngineFactory struct{}

func (StagedEngineFactory) Type() string { return "staged" }

func (StagedEngineFactory) New(name string, rawConfig map[string]interface{}) (QueryEngine, error) {
	schema, _ := rawConfig["schema"].(map[string][]string)
	sources, _ := rawConfig["sources"].(map[string]sourceprovider.Provider)
	defaultSource, _ := rawConfig["defaultSource"].(string)

	cacheSize := 0
	if v, ok := rawConfig["cacheSize"].(int); ok {
		cacheSize = v
	}

	cfg := EngineConfig{
		Schema:        schema,
		Sources:       sources,
		DefaultSource: defaultSource,
		CacheSize:     cacheSize,
	}
	return NewStagedEngine(name, cfg), nil
}

var _ Factory = StagedEngineFactory{}
