package engine

import "sync"

// deviceLocks hands out one mutex per device id. Entries are dropped once no
// goroutine holds or waits for them.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[int64]*deviceLock
}

type deviceLock struct {
	sync.Mutex
	refs int
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{locks: make(map[int64]*deviceLock)}
}

// lock blocks until the device's section is free and returns its release func.
func (l *deviceLocks) lock(id int64) func() {
	l.mu.Lock()
	dl, ok := l.locks[id]
	if !ok {
		dl = &deviceLock{}
		l.locks[id] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.Lock()
	return func() {
		dl.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *deviceLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
