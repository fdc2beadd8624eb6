package storage

import (
	"context"
	"errors"
)

// DefaultKey is the key the book collection is stored under.
const DefaultKey = "mybooks"

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("storage is closed")

// Storage defines the key/value operations the book store persists through.
// Values are opaque strings; Set replaces the whole value.
type Storage interface {
	// Get returns the value stored under key. ok is false when the key was
	// never written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// Unavailable stands in when no persistent store exists. Reads find
// nothing and writes are dropped; it never fails.
type Unavailable struct{}

func (Unavailable) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Unavailable) Set(context.Context, string, string) error         { return nil }
func (Unavailable) Initialize(context.Context) error                  { return nil }
func (Unavailable) Close() error                                      { return nil }
