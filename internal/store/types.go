// Package store persists serialized session state between turns. The blob
// is opaque to the store: it is the dialogue state's JSON form, and it is
// the sole continuation mechanism for a call.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session state not found")

// Store saves and loads one opaque state blob per session.
type Store interface {
	Save(ctx context.Context, sessionID string, state []byte) error
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}
