package stubs

import (
	"context"
	"sort"
	"sync"
)

// MockDB is an in-memory implementation of the Storage interface for testing
// and for running without a database.
type MockDB struct {
	mu     sync.RWMutex
	values map[string]string
	writes int
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		values: make(map[string]string),
	}
}

// Seed stores values directly, bypassing the write counter.
func (m *MockDB) Seed(key, value string) *MockDB {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return m
}

// Initialize does nothing for mock DB
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// Get returns the value stored under key
func (m *MockDB) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	return value, ok, nil
}

// Set stores value under key
func (m *MockDB) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	m.writes++
	return nil
}

// Writes returns how many times Set was called
func (m *MockDB) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}

// Keys returns all stored keys sorted by name
func (m *MockDB) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close does nothing for mock DB
func (m *MockDB) Close() error {
	return nil
}
