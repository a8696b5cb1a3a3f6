// Package session provides the server-side session store: a per-browser
// mapping from string keys to string values, namespaced by friend slot at the
// call sites. Handlers receive a Store explicitly; there is no ambient
// session state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is the default session lifetime.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a session key is not present.
var ErrNotFound = errors.New("session key not found")

// Store is the server-side session store interface.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, sessionID, key string) (string, error)

	// Put stores value under key, overwriting any prior value.
	Put(ctx context.Context, sessionID, key, value string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, sessionID string, keys ...string) error

	// Keys lists all keys present in the session.
	Keys(ctx context.Context, sessionID string) ([]string, error)

	// Clear removes the whole session.
	Clear(ctx context.Context, sessionID string) error
}

// PutJSON marshals v and stores it under key.
func PutJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling session value: %w", err)
	}
	return s.Put(ctx, sessionID, key, string(data))
}

// GetJSON reads the value under key and unmarshals it into v.
func GetJSON(ctx context.Context, s Store, sessionID, key string, v any) error {
	raw, err := s.Get(ctx, sessionID, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("unmarshaling session value: %w", err)
	}
	return nil
}
