package stubs

import (
	"context"
	"errors"
)

// ErrInjected is returned by FailingDB operations.
var ErrInjected = errors.New("injected storage failure")

// FailingDB wraps a MockDB and fails reads and/or writes on demand.
type FailingDB struct {
	*MockDB
	FailGet bool
	FailSet bool
}

// NewFailingDB creates a FailingDB over an empty mock database
func NewFailingDB() *FailingDB {
	return &FailingDB{MockDB: NewMockDB()}
}

// Get fails when FailGet is set
func (f *FailingDB) Get(ctx context.Context, key string) (string, bool, error) {
	if f.FailGet {
		return "", false, ErrInjected
	}
	return f.MockDB.Get(ctx, key)
}

// Set fails when FailSet is set
func (f *FailingDB) Set(ctx context.Context, key, value string) error {
	if f.FailSet {
		return ErrInjected
	}
	return f.MockDB.Set(ctx, key, value)
}
