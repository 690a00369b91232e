package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/estudaia-api/pkg/kv"
)

const emptyCollection = "[]"

// loadCollection decodes the JSON array stored under key. A missing key is an empty
// collection; an unparsable one is logged and reset to empty so the caller can continue.
func loadCollection[T any](ctx context.Context, store kv.Store, key string, logger *zap.Logger) ([]T, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("malformed local collection, resetting to empty", zap.String("key", key), zap.Error(err))
		if resetErr := store.Set(ctx, key, emptyCollection); resetErr != nil {
			return nil, fmt.Errorf("reset %s: %w", key, resetErr)
		}
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func encodeCollection[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
