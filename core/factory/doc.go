// Package factory provides a small generic registry used to instantiate
// pluggable backends (storage, metrics sinks) from configuration. A backend
// is selected by a type string and receives a map of raw settings that the
// factory decodes into its own typed struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[store.Repository]()
//	reg.Register("csv", func(conf map[string]any) (store.Repository, error) {
//	    var c struct{ Dir string `json:"dir"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewCSVStore(c.Dir)
//	})
//	repo, err := reg.Create(factory.ModuleConfig{Type: "csv", Conf: map[string]any{"dir": "data"}})
package factory
