package db

import (
	"context"
	"sync"
)

// MemoryStore is a Store that forgets everything when the process exits.
type MemoryStore struct {
	m    sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string][]byte{},
	}
}

func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	v, ok := ms.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (ms *MemoryStore) GetMany(_ context.Context, keys ...string) (map[string][]byte, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := ms.data[k]; ok {
			values[k] = clone(v)
		}
	}
	return values, nil
}

func (ms *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.data[key] = clone(value)
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, key string) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	delete(ms.data, key)
	return nil
}

// Callers hold on to what they pass in and get back, so never share backing arrays
func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
