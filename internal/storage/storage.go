package storage

import (
	"context"
	"errors"
)

// Store is the string key/value storage that carts and currency preferences
// are persisted in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
