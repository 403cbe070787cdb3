package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/bloxpvp/robloxlink/internal/shared"
)

const sweepInterval = 5 * time.Minute

type memoryEntry struct {
	challenge string
	expiresAt time.Time
}

// MemoryRegistry is the default single-process registry: a mutex-guarded
// map with lazy expiry on lookup and a periodic sweep bounding memory.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	r := &MemoryRegistry{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}

	go r.sweep()

	return r
}

func (r *MemoryRegistry) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			now := time.Now()
			r.mu.Lock()
			for id, e := range r.entries {
				if now.After(e.expiresAt) {
					delete(r.entries, id)
				}
			}
			r.mu.Unlock()
		}
	}
}

// Close stops the background sweep.
func (r *MemoryRegistry) Close() {
	r.once.Do(func() { close(r.done) })
}

func (r *MemoryRegistry) Put(_ context.Context, robloxID int64, challenge string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[robloxID] = memoryEntry{challenge: challenge, expiresAt: time.Now().Add(r.ttl)}
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, robloxID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[robloxID]
	if !ok {
		return "", shared.ErrorNotFound
	}
	if time.Now().After(e.expiresAt) {
		delete(r.entries, robloxID)
		return "", shared.ErrorNotFound
	}

	return e.challenge, nil
}

func (r *MemoryRegistry) Remove(_ context.Context, robloxID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, robloxID)
	return nil
}

func (r *MemoryRegistry) CompareAndRemove(_ context.Context, robloxID int64, challenge string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[robloxID]
	if !ok || time.Now().After(e.expiresAt) || e.challenge != challenge {
		return false, nil
	}

	delete(r.entries, robloxID)
	return true, nil
}
