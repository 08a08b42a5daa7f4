package liveness

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Attempt is one verification attempt. Its session is guarded so concurrent
// requests for the same attempt are applied one frame at a time. Activity is
// tracked outside the session lock so expiry never waits on a frame.
type Attempt struct {
	ID string

	mu      sync.Mutex
	session *Session

	lastSeen atomic.Int64 // unix nanoseconds
	active   atomic.Int32 // callers inside or waiting on Do
}

func newAttempt() *Attempt {
	a := &Attempt{ID: uuid.NewString(), session: NewSession()}
	a.touch()
	return a
}

// Do runs fn with exclusive access to the attempt's session.
func (a *Attempt) Do(fn func(s *Session) Status) Status {
	a.active.Add(1)
	defer a.active.Add(-1)
	a.touch()
	defer a.touch()

	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.session)
}

func (a *Attempt) touch() {
	a.lastSeen.Store(time.Now().UnixNano())
}

// expired reports whether the attempt has been idle for longer than ttl.
// An attempt in use never expires.
func (a *Attempt) expired(now time.Time, ttl time.Duration) bool {
	if a.active.Load() > 0 {
		return false
	}
	return now.Sub(time.Unix(0, a.lastSeen.Load())) > ttl
}

// Attempts holds open attempts and discards those idle for longer than ttl.
type Attempts struct {
	ttl      time.Duration
	attempts map[string]*Attempt
	mu       sync.RWMutex
}

func NewAttempts(ttl time.Duration) *Attempts {
	return &Attempts{ttl: ttl, attempts: make(map[string]*Attempt)}
}

// New opens a fresh attempt.
func (r *Attempts) New() *Attempt {
	a := newAttempt()
	r.mu.Lock()
	r.attempts[a.ID] = a
	r.mu.Unlock()
	return a
}

// Get returns an open attempt, nil if unknown or expired.
func (r *Attempts) Get(id string) *Attempt {
	r.mu.RLock()
	a, ok := r.attempts[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if r.ttl > 0 && a.expired(time.Now(), r.ttl) {
		r.Delete(id)
		return nil
	}
	return a
}

// Delete closes an attempt. It reports whether the attempt existed.
func (r *Attempts) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.attempts[id]
	delete(r.attempts, id)
	return ok
}

// Len returns the number of open attempts.
func (r *Attempts) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.attempts)
}

// Sweep removes attempts idle for longer than the ttl and returns how many.
func (r *Attempts) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, a := range r.attempts {
		if a.expired(now, r.ttl) {
			delete(r.attempts, id)
			removed++
		}
	}
	return removed
}

// RunJanitor sweeps expired attempts every interval until ctx is done.
func (r *Attempts) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}
