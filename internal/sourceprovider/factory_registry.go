package sourceprovider

import "fmt"

// FactoryRegistry is the process-wide, closed set of provider factories,
// wired by type name at startup.
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
		return fmt.Errorf("sourceprovider: factory for type %q already registered", t)
	}
	r.factories[t] = factory
	return nil
}

// Build looks up the factory for providerType and constructs a named
// Provider from rawConfig.
func (r *FactoryRegistry) Build(providerType, name string, rawConfig map[string]interface{}) (Provider, error) {
	factory, ok := r.factories[providerType]
	if !ok {
		return nil, &ConfigError{SourceName: name, ErrorCode: "unknown_provider_type", Message: fmt.Sprintf("no factory registered for type %q", providerType)}
	}
	return factory.New(name, rawConfig)
}
