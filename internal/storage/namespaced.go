package storage

import (
	"context"
	"fmt"
)

// Namespaced scopes every key to one browser profile.
type Namespaced struct {
	store  Store
	prefix string
}

func ForProfile(store Store, profileID string) *Namespaced {
	return &Namespaced{store: store, prefix: ProfileKey(profileID, "")}
}

// ProfileKey is the physical key that profileID's key is stored under.
func ProfileKey(profileID, key string) string {
	return fmt.Sprintf("profile:%s:%s", profileID, key)
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}
