package meetings

import "sync"

// meetingLocks serializes read-modify-write cycles per meeting id. Two
// concurrent transcribe calls on the same meeting run one after the other
// instead of racing on the persisted aggregate.
type meetingLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMeetingLocks() *meetingLocks {
	return &meetingLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for id and returns the unlock func.
func (l *meetingLocks) acquire(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// forget drops the lock entry for a deleted meeting.
func (l *meetingLocks) forget(id string) {
	l.mu.Lock()
	delete(l.locks, id)
	l.mu.Unlock()
}
