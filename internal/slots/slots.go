package slots

import (
	"slices"
	"sort"
	"time"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/Kashuab/readerpool/internal/lease"
)

// Table tracks up to maxEntries pooled entries per key. It owns the physical
// readers of its entries. Table is not safe for concurrent use; callers
// serialize access per key.
type Table struct {
	maxEntries int
	entries    map[string][]*lease.Entry // key → entries in creation order
}

func New(maxEntries int) *Table {
	return &Table{
		maxEntries: maxEntries,
		entries:    make(map[string][]*lease.Entry),
	}
}

// Acquire leases a free entry for key, or reserves a new leased entry when the
// key is below capacity. fresh reports a reservation whose reader the caller
// must open and attach, or remove on failure. A nil entry means the key is full.
func (t *Table) Acquire(key string, releaser lease.Releaser, now time.Time) (e *lease.Entry, fresh bool) {
	list := t.entries[key]
	for _, e := range list {
		if e.State() == lease.Free {
			e.Lease(now)
			return e, false
		}
	}

	if len(list) >= t.maxEntries {
		return nil, false
	}

	e = lease.NewEntry(key, releaser, now)
	t.entries[key] = append(list, e)
	return e, true
}

// Release returns a leased entry to the free list.
func (t *Table) Release(e *lease.Entry) {
	e.Free()
}

// Remove drops the entry from the table and marks it closed. The returned
// reader, if any, must be closed by the caller.
func (t *Table) Remove(e *lease.Entry) dataset.Reader {
	list := t.entries[e.Key()]
	i := slices.Index(list, e)
	if i < 0 {
		panic("slots: removing entry " + e.ID() + " not in table for " + e.Key())
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(t.entries, e.Key())
	} else {
		t.entries[e.Key()] = list
	}
	return e.MarkClosed()
}

// EvictFree removes every free entry for key and returns their readers.
func (t *Table) EvictFree(key string) []dataset.Reader {
	var readers []dataset.Reader
	kept := t.entries[key][:0]
	for _, e := range t.entries[key] {
		if e.State() == lease.Free {
			if r := e.MarkClosed(); r != nil {
				readers = append(readers, r)
			}
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		delete(t.entries, key)
	} else {
		clear(t.entries[key][len(kept):])
		t.entries[key] = kept
	}
	return readers
}

// SweepFree evicts the free entries of every key.
func (t *Table) SweepFree() []dataset.Reader {
	var readers []dataset.Reader
	for key := range t.entries {
		readers = append(readers, t.EvictFree(key)...)
	}
	return readers
}

// Counts returns the number of free and leased entries for key.
func (t *Table) Counts(key string) (free, leased int) {
	for _, e := range t.entries[key] {
		switch e.State() {
		case lease.Free:
			free++
		case lease.Leased:
			leased++
		default:
			panic("slots: closed entry " + e.ID() + " still in table for " + key)
		}
	}
	return free, leased
}

// Leased returns the number of leased entries for key.
func (t *Table) Leased(key string) int {
	_, leased := t.Counts(key)
	return leased
}

// Len returns the number of entries for key.
func (t *Table) Len(key string) int {
	return len(t.entries[key])
}

// Keys returns the keys with at least one entry, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshots describes the entries of key in creation order.
func (t *Table) Snapshots(key string) []lease.Snapshot {
	list := t.entries[key]
	out := make([]lease.Snapshot, len(list))
	for i, e := range list {
		out[i] = e.Snapshot()
	}
	return out
}
