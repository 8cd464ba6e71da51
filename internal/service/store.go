package service

import "context"

// Store is the durable key-value slot collaborators persist through.
// Load returns appErrors.ErrStoreMiss when the key is absent.
type Store interface {
	Load(ctx context.Context, key string, dest interface{}) error
	Save(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}
