package kv

import (
	"context"
	"fmt"

	"github.com/noah-isme/estudaia-api/pkg/config"
	"github.com/noah-isme/estudaia-api/pkg/database"
)

// Open builds the store selected by LOCAL_STORE_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.LocalStore.Driver {
	case config.StoreDriverMemory:
		return NewMemoryStore(), nil
	case config.StoreDriverRedis:
		client, err := NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return NewRedisStore(client), nil
	case config.StoreDriverSQLite, "":
		db, err := database.NewSQLite(cfg.LocalStore.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		store, err := NewSQLiteStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown local store driver %q", cfg.LocalStore.Driver)
	}
}
