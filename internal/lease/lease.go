// Package lease provides single-flight leases so that a request id is worked
// by at most one handler at a time, within one process or across several.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager hands out expiring leases keyed by string.
type Manager interface {
	// Acquire returns a token when key was free (or its lease expired).
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees key if token still owns it.
	Release(ctx context.Context, key, token string) error
}

type entry struct {
	token   string
	expires time.Time
}

// Memory is an in-process lease table.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, held := m.entries[key]; held && now.Before(e.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	m.entries[key] = entry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (m *Memory) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, held := m.entries[key]; held && e.token == token {
		delete(m.entries, key)
	}
	return nil
}

// Held reports how many unexpired leases exist.
func (m *Memory) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for k, e := range m.entries {
		if now.Before(e.expires) {
			n++
		} else {
			delete(m.entries, k)
		}
	}
	return n
}
