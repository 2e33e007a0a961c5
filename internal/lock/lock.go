// Package lock implements a leased mutex with fencing tokens on top of a
// shared key-value store.  The lease (a TTL on the lock key) keeps the
// system live when a holder crashes; the fencing token is what keeps it
// correct when a holder merely stalls.  Every acquisition draws a strictly
// increasing token from a per-scope counter, so a holder whose lease
// expired can detect, by re-reading the lock key immediately before its
// durable write, that someone else took over and abort instead of
// landing a second write.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrBusy is returned by Acquire when the lock key already exists.
// The coordinator never retries; backoff is a caller concern.
var ErrBusy = errors.New("lock busy")

// Scope separates independent lock classes on the same event.  Booking
// admission and waitlist promotion use distinct scopes so a promotion
// pass cannot deadlock with an in-flight create on the same event.
type Scope string

const (
	ScopeBooking   Scope = "booking"
	ScopePromotion Scope = "promo"
)

// Store is the minimal key-value contract the coordinator needs: an
// atomic counter, a conditional set with expiry, a read and a delete.
// Any backend offering these four operations can carry the lock; the
// production implementation lives in redis.go.
type Store interface {
	// Incr atomically increments the integer at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// SetNX sets key to value with the given TTL only if key is absent.
	// It reports whether the set happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the value at key and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Del removes key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
}

// Lease identifies one acquisition of one lock: the key that was set and
// the fencing token it was set to.  A Lease is only a claim; Validate
// tells whether the claim is still current.
type Lease struct {
	Key   string
	Token int64
}

// Coordinator issues and checks leases for per-event critical sections.
type Coordinator struct {
	store Store
	ttl   time.Duration
}

// New returns a Coordinator that leases locks for ttl.  The TTL bounds
// how long a crashed holder can block an event; it must comfortably
// exceed the longest expected critical section.
func New(store Store, ttl time.Duration) *Coordinator {
	return &Coordinator{store: store, ttl: ttl}
}

func counterKey(scope Scope, eventID uint64) string {
	return fmt.Sprintf("fence:%s:%d", scope, eventID)
}

func lockKey(scope Scope, eventID uint64) string {
	return fmt.Sprintf("lock:%s:%d", scope, eventID)
}

// Acquire draws the next fencing token for the scope and attempts to take
// the lock by storing the token under the lock key with the configured
// TTL.  When the key is already held it returns ErrBusy.  The token is
// incremented even on a failed attempt; tokens only need to be strictly
// increasing, not dense.
func (c *Coordinator) Acquire(ctx context.Context, scope Scope, eventID uint64) (Lease, error) {
	token, err := c.store.Incr(ctx, counterKey(scope, eventID))
	if err != nil {
		return Lease{}, fmt.Errorf("lock: next token: %w", err)
	}
	key := lockKey(scope, eventID)
	ok, err := c.store.SetNX(ctx, key, strconv.FormatInt(token, 10), c.ttl)
	if err != nil {
		return Lease{}, fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	if !ok {
		return Lease{}, ErrBusy
	}
	return Lease{Key: key, Token: token}, nil
}

// Validate re-reads the lock key and reports whether it still carries the
// lease's token.  It returns false when the key expired, was deleted, or
// was overwritten by a later acquirer.  Call it immediately before the
// irreversible write of a critical section.
func (c *Coordinator) Validate(ctx context.Context, lease Lease) (bool, error) {
	val, exists, err := c.store.Get(ctx, lease.Key)
	if err != nil {
		return false, fmt.Errorf("lock: validate %s: %w", lease.Key, err)
	}
	if !exists {
		return false, nil
	}
	return val == strconv.FormatInt(lease.Token, 10), nil
}

// Release deletes the lock key unconditionally.  It is best-effort
// cleanup and safe to call after the lease has already expired; the TTL
// guarantees the key disappears either way.
func (c *Coordinator) Release(ctx context.Context, lease Lease) error {
	return c.store.Del(ctx, lease.Key)
}
