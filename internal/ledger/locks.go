package ledger

import "sync"

// keyedLocks serializes work per key so confirmations racing on the same
// intent queue up while unrelated intents proceed independently.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: map[string]*sync.Mutex{}}
}

// acquire locks the mutex for key and returns its release func. Lock entries
// are retained for the process lifetime; the key space is bounded by the
// number of intents.
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
