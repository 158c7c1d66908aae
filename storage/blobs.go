// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"sync"
)

// InMemoryBlobs stores blobs in process memory. Tests use it to assert on
// what a crawl persisted without touching the filesystem.
type InMemoryBlobs struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewInMemoryBlobs returns an empty in-memory blob store.
func NewInMemoryBlobs() *InMemoryBlobs {
	return &InMemoryBlobs{objects: make(map[string][]byte)}
}

// Put implements Blobs.Put.
func (b *InMemoryBlobs) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	b.objects[key] = copied
	return nil
}

// Get returns the stored bytes and whether the key exists.
func (b *InMemoryBlobs) Get(key string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, exists := b.objects[key]
	return data, exists
}

// Keys returns every stored key.
func (b *InMemoryBlobs) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of stored blobs.
func (b *InMemoryBlobs) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
