package redis

import (
	"context"
	"time"

	"github.com/kbukum/authflow/auth/oidc"
)

// KeySetStore shares fetched provider key sets across replicas so a cold
// start does not hit every provider from every instance.
type KeySetStore struct {
	store *TypedStore[oidc.SigningKeySet]
}

var _ oidc.KeySetStore = (*KeySetStore)(nil)

// NewKeySetStore creates a KeySetStore under "<prefix>:jwks:<provider>".
func NewKeySetStore(client *Client) *KeySetStore {
	return &KeySetStore{store: NewTypedStore[oidc.SigningKeySet](client, client.KeyPrefix()+":jwks")}
}

// Load implements oidc.KeySetStore.
func (s *KeySetStore) Load(ctx context.Context, provider string) (*oidc.SigningKeySet, error) {
	return s.store.Load(ctx, provider)
}

// Save implements oidc.KeySetStore.
func (s *KeySetStore) Save(ctx context.Context, provider string, set *oidc.SigningKeySet, ttl time.Duration) error {
	return s.store.Save(ctx, provider, set, ttl)
}
