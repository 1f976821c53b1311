package docstore

import (
	"context"
	"sync"
)

// MemoryDocument keeps the mapping in process memory.
type MemoryDocument struct {
	name string

	mu   sync.Mutex
	data map[string]string
}

// NewMemoryDocument constructs an empty in-memory document.
func NewMemoryDocument(name string) *MemoryDocument {
	return &MemoryDocument{name: name, data: make(map[string]string)}
}

func (d *MemoryDocument) Name() string { return d.name }

func (d *MemoryDocument) Get(_ context.Context, key string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.data[key]
	return v, ok, nil
}

func (d *MemoryDocument) Insert(_ context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.data[key]; ok {
		return ErrExists
	}
	d.data[key] = value
	return nil
}

func (d *MemoryDocument) Put(_ context.Context, key, value string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, had := d.data[key]
	d.data[key] = value
	return prev, had, nil
}

func (d *MemoryDocument) CompareAndSwap(_ context.Context, key, old, value string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.data[key]
	if !ok || cur != old {
		return false, nil
	}
	d.data[key] = value
	return true, nil
}

func (d *MemoryDocument) Delete(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.data[key]; !ok {
		return false, nil
	}
	delete(d.data, key)
	return true, nil
}

func (d *MemoryDocument) DeleteIf(_ context.Context, key, value string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.data[key]
	if !ok || cur != value {
		return false, nil
	}
	delete(d.data, key)
	return true, nil
}

func (d *MemoryDocument) Len(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data), nil
}

func (d *MemoryDocument) Snapshot(_ context.Context) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.data))
	for k, v := range d.data {
		out[k] = v
	}
	return out, nil
}
