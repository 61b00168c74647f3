package repository

import "context"

// LocalStorage is a durable key/value store on the user's machine. It holds
// the active user identity and the backend session cookies across restarts.
type LocalStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
