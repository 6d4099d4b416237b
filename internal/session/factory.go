package session

import (
	"fmt"

	"waypoint/internal/config"
)

const defaultSQLitePath = "waypoint.db"

// NewStore creates the checkpoint store selected by cfg.
func NewStore(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		path := cfg.DSN
		if path == "" {
			path = defaultSQLitePath
		}
		return NewSQLiteStore(path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
