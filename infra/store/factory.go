// Package store provides file and database backed repositories.
package store

import (
	"github.com/kilianp07/evfleet/core/factory"
	corestore "github.com/kilianp07/evfleet/core/store"
)

// SQLiteConfig locates the database file.
type SQLiteConfig struct {
	Path string `json:"path"`
}

func init() {
	_ = corestore.Register("csv", func(conf map[string]any) (corestore.Repository, error) {
		var cfg CSVConfig
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewCSVStore(cfg)
	})
	_ = corestore.Register("sqlite", func(conf map[string]any) (corestore.Repository, error) {
		cfg := SQLiteConfig{Path: "evfleet.db"}
		if err := factory.Decode(conf, &cfg); err != nil {
			return nil, err
		}
		return NewSQLiteStore(cfg.Path)
	})
}
