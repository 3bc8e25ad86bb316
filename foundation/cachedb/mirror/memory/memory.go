// Package memory implements a durable mirror medium that only lives for the
// lifetime of the process. Used by tests and nodes running without a
// mirror folder.
package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror"
)

// Memory represents the medium implementation for storing envelopes in a
// map. This implements the mirror.Mirror interface.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

// Put stores a copy of the data under the specified key.
func (m *Memory) Put(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the data stored under the specified key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[key]
	if !exists {
		return nil, mirror.ErrNotFound
	}

	return append([]byte(nil), data...), nil
}

// Delete removes the key. Deleting an unknown key is not an error.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// Keys returns the sorted set of keys starting with prefix.
func (m *Memory) Keys(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}
