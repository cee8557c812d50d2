// Package threads maintains per-parent reply counts for single-level
// threads. Counts are monotonic: a deleted reply does not decrement.
package threads

import (
	"context"
	"sync"
)

// ReplyCounter tracks how many replies each parent message has received.
type ReplyCounter interface {
	// Increment records one new reply under the parent.
	Increment(ctx context.Context, parentMessageID int) error
	// Count returns the reply count for the parent; 0 when unknown.
	Count(ctx context.Context, parentMessageID int) (int, error)
	// CountMany returns counts for all given parents. Parents without
	// replies map to 0.
	CountMany(ctx context.Context, parentMessageIDs []int) (map[int]int, error)
	// Reset replaces the whole counter state, used by Rebuild.
	Reset(ctx context.Context, counts map[int]int) error
}

// ReplySource yields the authoritative reply counts from the message store.
type ReplySource interface {
	ReplyCountsByParent(ctx context.Context) (map[int]int, error)
}

// Rebuild reloads a counter from the store scan. Safe to run at any time;
// the counter state is replaced wholesale.
func Rebuild(ctx context.Context, src ReplySource, counter ReplyCounter) error {
	counts, err := src.ReplyCountsByParent(ctx)
	if err != nil {
		return err
	}
	return counter.Reset(ctx, counts)
}

// MemoryCounter is an in-process ReplyCounter, used in tests and when no
// Redis address is configured.
type MemoryCounter struct {
	mu     sync.RWMutex
	counts map[int]int
}

// NewMemoryCounter constructs an empty MemoryCounter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[int]int)}
}

func (c *MemoryCounter) Increment(ctx context.Context, parentMessageID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[parentMessageID]++
	return nil
}

func (c *MemoryCounter) Count(ctx context.Context, parentMessageID int) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[parentMessageID], nil
}

func (c *MemoryCounter) CountMany(ctx context.Context, parentMessageIDs []int) (map[int]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int]int, len(parentMessageIDs))
	for _, id := range parentMessageIDs {
		out[id] = c.counts[id]
	}
	return out, nil
}

func (c *MemoryCounter) Reset(ctx context.Context, counts map[int]int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[int]int, len(counts))
	for id, n := range counts {
		c.counts[id] = n
	}
	return nil
}
