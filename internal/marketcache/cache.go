// Package marketcache 缓存各交易所的市场列表，避免每次请求都拉取全量市场。
package marketcache

import (
	"context"
	"sync"
	"time"
)

// Cache 按交易所缓存统一格式的交易对列表。
type Cache interface {
	Get(ctx context.Context, exchangeID string) ([]string, bool, error)
	Set(ctx context.Context, exchangeID string, symbols []string, ttl time.Duration) error
}

type memoryEntry struct {
	symbols   []string
	expiresAt time.Time
}

// Memory 为进程内缓存。
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory 创建进程内缓存。
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get 返回未过期的缓存项。
func (m *Memory) Get(_ context.Context, exchangeID string) ([]string, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[exchangeID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		if cur, still := m.entries[exchangeID]; still && cur.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, exchangeID)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	return append([]string(nil), entry.symbols...), true, nil
}

// Set 写入缓存，ttl<=0 表示不过期。
func (m *Memory) Set(_ context.Context, exchangeID string, symbols []string, ttl time.Duration) error {
	entry := memoryEntry{symbols: append([]string(nil), symbols...)}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[exchangeID] = entry
	m.mu.Unlock()
	return nil
}
