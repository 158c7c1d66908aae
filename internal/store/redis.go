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

package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/agentberlin/sidewinder/storage"
)

// State moves run as scripts so the membership check and the set mutation
// are one atomic step even with crawl workers on several hosts.
var (
	// enqueueScript adds each path to the queued set unless it is already
	// present in any state. KEYS: queued, dispatched, visited. ARGV: paths.
	enqueueScript = redis.NewScript(`
local added = 0
for i = 1, #ARGV do
        local path = ARGV[i]
        if redis.call('SISMEMBER', KEYS[1], path) == 0
                and redis.call('SISMEMBER', KEYS[2], path) == 0
                and redis.call('SISMEMBER', KEYS[3], path) == 0 then
                redis.call('SADD', KEYS[1], path)
                added = added + 1
        end
end
return added`)

	// dequeueScript pops up to ARGV[1] paths from the queued set and moves
	// them to the dispatched set. KEYS: queued, dispatched.
	dequeueScript = redis.NewScript(`
local popped = redis.call('SPOP', KEYS[1], tonumber(ARGV[1]))
if #popped > 0 then
        redis.call('SADD', KEYS[2], unpack(popped))
end
return popped`)

	// visitScript marks ARGV[1] visited, removing it from the other states.
	// Returns 1 when the path was already visited. KEYS: queued, dispatched,
	// visited.
	visitScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[3], ARGV[1]) == 1 then
        return 1
end
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('SREM', KEYS[1], ARGV[1])
redis.call('SREM', KEYS[2], ARGV[1])
return 0`)

	// requeueScript moves every dispatched path back to queued and returns
	// how many moved. The dispatched set is bounded by the crawl fan-out, so
	// unpack stays far below Lua's argument limit. KEYS: queued, dispatched.
	requeueScript = redis.NewScript(`
local members = redis.call('SMEMBERS', KEYS[2])
if #members > 0 then
        redis.call('SADD', KEYS[1], unpack(members))
        redis.call('DEL', KEYS[2])
end
return #members`)
)

// RedisFrontier is a Redis-backed frontier for crawls whose executions run on
// more than one host. Each crawl owns a key quadruple under the configured
// prefix: a marker key plus one set per path state. Batches pop in set order,
// not insertion order; dedup and completeness hold either way.
type RedisFrontier struct {
	client *redis.Client
	prefix string
}

// NewRedisFrontier initializes a Redis-backed frontier.
func NewRedisFrontier(addr, password string, db int, prefix string) *RedisFrontier {
	return &RedisFrontier{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		prefix: prefix,
	}
}

// Close closes the Redis client.
func (f *RedisFrontier) Close() error {
	return f.client.Close()
}

func (f *RedisFrontier) metaKey(crawlID string) string {
	return f.prefix + crawlID + ":meta"
}

// stateKeys returns the queued, dispatched and visited set keys, in the order
// the scripts expect them.
func (f *RedisFrontier) stateKeys(crawlID string) []string {
	return []string{
		f.prefix + crawlID + ":queued",
		f.prefix + crawlID + ":dispatched",
		f.prefix + crawlID + ":visited",
	}
}

// Create implements storage.Frontier.Create.
func (f *RedisFrontier) Create(ctx context.Context, crawlID string) error {
	created, err := f.client.SetNX(ctx, f.metaKey(crawlID), "1", 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create frontier: %v", err)
	}
	if !created {
		return storage.ErrFrontierExists
	}
	return nil
}

// MarkVisited implements storage.Frontier.MarkVisited.
func (f *RedisFrontier) MarkVisited(ctx context.Context, crawlID, path string) (bool, error) {
	if err := f.exists(ctx, crawlID); err != nil {
		return false, err
	}
	already, err := visitScript.Run(ctx, f.client, f.stateKeys(crawlID), path).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to mark path visited: %v", err)
	}
	return already == 1, nil
}

// Enqueue implements storage.Frontier.Enqueue.
func (f *RedisFrontier) Enqueue(ctx context.Context, crawlID string, paths []string) error {
	if err := f.exists(ctx, crawlID); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	args := make([]interface{}, len(paths))
	for i, path := range paths {
		args[i] = path
	}
	if err := enqueueScript.Run(ctx, f.client, f.stateKeys(crawlID), args...).Err(); err != nil {
		return fmt.Errorf("failed to enqueue paths: %v", err)
	}
	return nil
}

// DequeueBatch implements storage.Frontier.DequeueBatch.
func (f *RedisFrontier) DequeueBatch(ctx context.Context, crawlID string, limit int) ([]string, error) {
	if err := f.exists(ctx, crawlID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	keys := f.stateKeys(crawlID)
	paths, err := dequeueScript.Run(ctx, f.client, keys[:2], limit).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue batch: %v", err)
	}
	return paths, nil
}

// RequeueDispatched implements storage.Frontier.RequeueDispatched.
func (f *RedisFrontier) RequeueDispatched(ctx context.Context, crawlID string) (int64, error) {
	if err := f.exists(ctx, crawlID); err != nil {
		return 0, err
	}
	keys := f.stateKeys(crawlID)
	moved, err := requeueScript.Run(ctx, f.client, keys[:2]).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to requeue dispatched paths: %v", err)
	}
	return moved, nil
}

// RemainingCount implements storage.Frontier.RemainingCount.
func (f *RedisFrontier) RemainingCount(ctx context.Context, crawlID string) (int64, error) {
	stats, err := f.Stats(ctx, crawlID)
	if err != nil {
		return 0, err
	}
	return stats.Remaining(), nil
}

// Stats implements storage.Frontier.Stats.
func (f *RedisFrontier) Stats(ctx context.Context, crawlID string) (storage.FrontierStats, error) {
	if err := f.exists(ctx, crawlID); err != nil {
		return storage.FrontierStats{}, err
	}
	keys := f.stateKeys(crawlID)
	counts := make([]int64, len(keys))
	for i, key := range keys {
		count, err := f.client.SCard(ctx, key).Result()
		if err != nil {
			return storage.FrontierStats{}, fmt.Errorf("failed to count %s: %v", key, err)
		}
		counts[i] = count
	}
	return storage.FrontierStats{Queued: counts[0], Dispatched: counts[1], Visited: counts[2]}, nil
}

// Destroy implements storage.Frontier.Destroy.
func (f *RedisFrontier) Destroy(ctx context.Context, crawlID string) error {
	remaining, err := f.RemainingCount(ctx, crawlID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return storage.ErrFrontierNotDrained
	}
	keys := append(f.stateKeys(crawlID), f.metaKey(crawlID))
	if err := f.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to destroy frontier: %v", err)
	}
	return nil
}

func (f *RedisFrontier) exists(ctx context.Context, crawlID string) error {
	n, err := f.client.Exists(ctx, f.metaKey(crawlID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check frontier existence: %v", err)
	}
	if n == 0 {
		return storage.ErrFrontierNotFound
	}
	return nil
}
