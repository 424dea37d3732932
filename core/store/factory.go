package store

import "github.com/kilianp07/evfleet/core/factory"

var registry = factory.NewRegistry[Repository]()

func init() {
	_ = Register("memory", func(map[string]any) (Repository, error) {
		return NewMemoryStore(), nil
	})
}

// Register adds a repository backend identified by name.
func Register(name string, f factory.Factory[Repository]) error {
	return registry.Register(name, f)
}

// New creates the repository described by cfg. An empty type selects the
// memory backend.
func New(cfg factory.ModuleConfig) (Repository, error) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	return registry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return registry.Names() }
