// Package revocation tracks session tokens that were logged out before their natural expiry.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Registry is the process-wide set of revoked tokens. Implementations must make a completed Revoke
// visible to every later IsRevoked call.
type Registry interface {
	Revoke(token string, expiresAt time.Time)
	IsRevoked(token string) bool
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	grace   time.Duration
	now     func() time.Time
}

type Option func(*MemoryRegistry)

func WithClock(now func() time.Time) Option {
	return func(r *MemoryRegistry) {
		r.now = now
	}
}

// NewMemoryRegistry keeps each entry until the revoked token's expiry plus grace.
// A negative grace is treated as zero.
func NewMemoryRegistry(grace time.Duration, opts ...Option) *MemoryRegistry {
	if grace < 0 {
		grace = 0
	}
	r := &MemoryRegistry{
		entries: make(map[string]time.Time),
		grace:   grace,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *MemoryRegistry) Revoke(token string, expiresAt time.Time) {
	key := fingerprint(token)
	removeAt := expiresAt.Add(r.grace)

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[key]; ok && current.After(removeAt) {
		return
	}
	r.entries[key] = removeAt
}

func (r *MemoryRegistry) IsRevoked(token string) bool {
	key := fingerprint(token)

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Sweep evicts entries whose removal time has passed and returns how many were dropped.
func (r *MemoryRegistry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, removeAt := range r.entries {
		if !now.Before(removeAt) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Run sweeps every interval until ctx is cancelled.
func (r *MemoryRegistry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("revocation sweep interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if removed := r.Sweep(); removed > 0 {
				logrus.WithFields(logrus.Fields{
					"removed":   removed,
					"remaining": r.Len(),
				}).Debug("Swept expired revocation entries")
			}
		}
	}
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
