// Package kvstore is the durable key-value storage behind chat session
// lists and user preferences. Values are JSON documents.
package kvstore

import (
	"context"
	"fmt"
)

// Store is implemented by every backend.
type Store interface {
	// Get returns found=false (and no error) when the key is absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set replaces the whole value of key.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// SessionsKey is the key holding the serialized chat session list of a user.
func SessionsKey(userID string) string {
	return fmt.Sprintf("chatSessions_%s", userID)
}

// ThemeKey is the key holding the theme preference of a user.
func ThemeKey(userID string) string {
	return fmt.Sprintf("theme_%s", userID)
}
