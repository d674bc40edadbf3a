package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const flockRetryDelay = 5 * time.Millisecond

// recordLocks hands out one mutex per job id. Entries are reference counted
// and dropped when the last holder releases them.
type recordLocks struct {
	mu      sync.Mutex
	entries map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

func newRecordLocks() *recordLocks {
	return &recordLocks{entries: make(map[string]*recordLock)}
}

func (l *recordLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &recordLock{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}

// withFileLock holds an exclusive advisory lock on path while fn runs. The
// lock excludes other processes sharing the data directory.
func withFileLock(ctx context.Context, path string, fn func() error) error {
	lock := flock.New(path)
	locked, err := lock.TryLockContext(ensureContext(ctx), flockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire record lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire record lock: %s is held by another process", path)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
