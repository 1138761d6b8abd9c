package queryengine

import "fmt"

// FactoryRegistry is the process-wide, closed set of engine factories,
// wired by type name at startup — the same shape
// internal/sourceprovider.FactoryRegistry uses for providers.
type FactoryRegistry struct {
	factories map[string]Factory
}

// NewFactoryRegistry returns an empty registry.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]Factory)}
}

// Register wires factory under its own Type() name.
func (r *FactoryRegistry) Register(factory Factory) error {
	t := factory.Type()
	if _, exists := r.factories[t]; exists {
		return fmt.Errorf("queryengine: factory for type %q already registered", t)
	}
	r.factories[t] = factory
	return nil
}

// Build looks up the factory for engineType and constructs a named
// QueryEngine from rawConfig.
func (r *FactoryRegistry) Build(engineType, name string, rawConfig map[string]interface{}) (QueryEngine, error) {
	factory, ok := r.factories[engineType]
	if !ok {
		return nil, &ConfigurationError{EngineName: name, ErrorCode: "unknown_engine_type", Message: fmt.Sprintf("no factory registered for type %q", engineType)}
	}
	return factory.New(name, rawConfig)
}
