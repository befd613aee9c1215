package qdrant

import "sync"

// ownerLocks serialises writes per owner within this process so that
// writes of different owners proceed independently
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// lock blocks until the owner's lock is held and returns its release.
// Entries are dropped once no goroutine holds or waits on them.
func (o *ownerLocks) lock(ownerID string) func() {
	o.mu.Lock()
	l, ok := o.locks[ownerID]
	if !ok {
		l = &ownerLock{}
		o.locks[ownerID] = l
	}
	l.refs++
	o.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		o.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(o.locks, ownerID)
		}
		o.mu.Unlock()
	}
}
