// Package lock serializes channel activations per (channelType, scope) key.
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock for a key and returns its release func.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is an in-process Locker for single-instance deployments and tests.
type KeyedMutex struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{mutexes: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	m, ok := k.mutexes[key]
	if !ok {
		m = &sync.Mutex{}
		k.mutexes[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
