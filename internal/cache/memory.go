package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemorySize bounds the in-process cache when no size is configured.
const DefaultMemorySize = 4096

// Memory is an in-process LRU cache.
type Memory struct {
	lru *lru.Cache[Key, Entry]
}

// NewMemory creates a Memory holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	c, err := lru.New[Key, Entry](size)
	if err != nil {
		return nil, err
	}
	return &Memory{lru: c}, nil
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	e, ok := m.lru.Get(key)
	return e, ok, nil
}

func (m *Memory) Put(_ context.Context, key Key, e Entry) error {
	e.Schema = schemaVersion
	m.lru.Add(key, e)
	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
