package locks

import (
	"sort"
	"time"
)

// Lock describes an exclusive lock on a key. Holder is informational only:
// any caller may unlock.
type Lock struct {
	Key      string    `json:"key"`
	Holder   string    `json:"holder"`
	LockedAt time.Time `json:"locked_at"`
}

// Table holds the lock state of each key. A key absent from the table is
// unlocked. Table is not safe for concurrent use; callers serialize access per key.
type Table struct {
	locks map[string]Lock
}

func New() *Table {
	return &Table{
		locks: make(map[string]Lock),
	}
}

// IsLocked reports whether key is locked.
func (t *Table) IsLocked(key string) bool {
	_, ok := t.locks[key]
	return ok
}

// Lock marks key as locked. It returns false if key was already locked.
func (t *Table) Lock(key string, holder string, now time.Time) bool {
	if _, ok := t.locks[key]; ok {
		return false
	}
	t.locks[key] = Lock{Key: key, Holder: holder, LockedAt: now}
	return true
}

// Unlock marks key as unlocked. It returns false if key was not locked.
func (t *Table) Unlock(key string) bool {
	if _, ok := t.locks[key]; !ok {
		return false
	}
	delete(t.locks, key)
	return true
}

// Get returns the lock on key, if any.
func (t *Table) Get(key string) (Lock, bool) {
	l, ok := t.locks[key]
	return l, ok
}

// Keys returns the locked keys, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.locks))
	for k := range t.locks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
