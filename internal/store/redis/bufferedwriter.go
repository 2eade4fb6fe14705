package redis

import (
	"context"
	"log/slog"
	"sync"

	"fxdesk/internal/model"
)

// BufferedCache wraps a Cache with a circuit breaker. While the circuit is
// open, rate writes are held locally (latest per pair, older cycles
// superseded) and flushed when the circuit closes again.
type BufferedCache struct {
	cache *Cache
	cb    *CircuitBreaker
	ctx   context.Context

	mu      sync.Mutex
	pending map[string]model.Rate // pair -> latest buffered rate

	// Callbacks (optional)
	OnBuffer func(count int) // called when a cycle is buffered
	OnFlush  func(count int) // called after flushing buffered rates
}

// NewBufferedCache wraps cache with cb. Flush is triggered automatically on
// the open -> closed transition.
func NewBufferedCache(ctx context.Context, cache *Cache, cb *CircuitBreaker) *BufferedCache {
	bc := &BufferedCache{
		cache:   cache,
		cb:      cb,
		ctx:     ctx,
		pending: make(map[string]model.Rate),
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bc.flush()
		}
	}

	return bc
}

// WriteRates writes a refresh cycle through the circuit breaker. If the
// circuit is open, the cycle is buffered: only the newest rate per pair is
// kept, since a later cycle supersedes an earlier one.
func (bc *BufferedCache) WriteRates(rates []model.Rate) error {
	err := bc.cb.Execute(func() error {
		return bc.cache.WriteRates(bc.ctx, rates)
	})
	if err == ErrCircuitOpen {
		bc.buffer(rates)
		return nil // buffered, not lost
	}
	return err
}

func (bc *BufferedCache) buffer(rates []model.Rate) {
	bc.mu.Lock()
	for _, r := range rates {
		if cur, ok := bc.pending[r.Pair]; !ok || r.Timestamp.After(cur.Timestamp) {
			bc.pending[r.Pair] = r
		}
	}
	n := len(bc.pending)
	bc.mu.Unlock()

	if bc.OnBuffer != nil {
		bc.OnBuffer(n)
	}
}

// flush replays buffered rates through the cache.
func (bc *BufferedCache) flush() {
	bc.mu.Lock()
	if len(bc.pending) == 0 {
		bc.mu.Unlock()
		return
	}
	toFlush := make([]model.Rate, 0, len(bc.pending))
	for _, r := range bc.pending {
		toFlush = append(toFlush, r)
	}
	bc.pending = make(map[string]model.Rate)
	bc.mu.Unlock()

	if err := bc.cache.WriteRates(bc.ctx, toFlush); err != nil {
		slog.Warn("buffered rate flush failed", "count", len(toFlush), "err", err)
		return
	}

	slog.Info("flushed buffered rates", "count", len(toFlush))
	if bc.OnFlush != nil {
		bc.OnFlush(len(toFlush))
	}
}

// PendingCount returns the number of pairs with buffered rates.
func (bc *BufferedCache) PendingCount() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.pending)
}

// Underlying returns the wrapped cache for direct reads.
func (bc *BufferedCache) Underlying() *Cache {
	return bc.cache
}
