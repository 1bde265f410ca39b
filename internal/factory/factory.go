package factory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/Kashuab/readerpool/internal/lease"
	"github.com/Kashuab/readerpool/internal/locks"
	"github.com/Kashuab/readerpool/internal/slots"
	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const DefaultShards = 16

// shard guards the slot and lock state of the keys that hash to it.
type shard struct {
	mu    sync.Mutex
	slots *slots.Table
	locks *locks.Table
}

// Factory hands out pooled dataset readers and per-dataset exclusive locks.
type Factory struct {
	opener     dataset.Opener
	maxEntries int
	shards     []*shard
	holder     string
	log        *logrus.Entry
	now        func() time.Time

	closing atomic.Bool

	opens       atomic.Int64
	reuses      atomic.Int64
	releases    atomic.Int64
	evictions   atomic.Int64
	closes      atomic.Int64
	openErrors  atomic.Int64
	closeErrors atomic.Int64
}

type Option func(*Factory)

func WithLogger(log *logrus.Entry) Option {
	return func(f *Factory) { f.log = log }
}

// WithShards sets how many independently locked partitions the key space is split into.
func WithShards(n int) Option {
	return func(f *Factory) {
		if n > 0 {
			f.shards = make([]*shard, n)
		}
	}
}

// WithHolder sets the label recorded on locks taken through this factory.
func WithHolder(holder string) Option {
	return func(f *Factory) { f.holder = holder }
}

// New returns a factory that keeps at most maxEntries readers per dataset.
func New(opener dataset.Opener, maxEntries int, opts ...Option) (*Factory, error) {
	if opener == nil {
		return nil, fmt.Errorf("opener is required")
	}
	if maxEntries <= 0 {
		return nil, fmt.Errorf("max entries must be > 0, got %d", maxEntries)
	}

	f := &Factory{
		opener:     opener,
		maxEntries: maxEntries,
		shards:     make([]*shard, DefaultShards),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logrus.NewEntry(logrus.StandardLogger())
	}
	f.log = f.log.WithField("component", "readerpool")
	for i := range f.shards {
		f.shards[i] = &shard{slots: slots.New(maxEntries), locks: locks.New()}
	}
	return f, nil
}

func (f *Factory) MaxEntries() int { return f.maxEntries }

func (f *Factory) shardFor(key string) *shard {
	return f.shards[xxhash.Sum64String(key)%uint64(len(f.shards))]
}

// Acquire leases a reader for the dataset described by meta, reusing an idle
// one when available. Errors from the opener are returned unchanged.
func (f *Factory) Acquire(ctx context.Context, meta dataset.Metadata) (*lease.Handle, error) {
	key := meta.Name
	if key == "" {
		return nil, ErrInvalidKey
	}
	s := f.shardFor(key)

	s.mu.Lock()
	if f.closing.Load() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: acquire %q", ErrClosing, key)
	}
	if s.locks.IsLocked(key) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrLocked, key)
	}
	e, fresh := s.slots.Acquire(key, f, f.now())
	s.mu.Unlock()

	if e == nil {
		return nil, fmt.Errorf("%w: %q has %d entries", ErrPoolFull, key, f.maxEntries)
	}
	if !fresh {
		f.reuses.Inc()
		return e.Handle(), nil
	}

	// The reserved entry counts as leased, so lock attempts see the key as busy
	// while the reader opens.
	r, err := f.opener.Open(ctx, meta)

	s.mu.Lock()
	if err != nil {
		s.slots.Remove(e)
		s.mu.Unlock()
		f.openErrors.Inc()
		f.log.WithError(err).WithField("dataset", key).Debug("open failed")
		return nil, err
	}
	e.Attach(r)
	s.mu.Unlock()

	f.opens.Inc()
	f.log.WithFields(logrus.Fields{"dataset": key, "entry": e.ID()}).Debug("opened reader")
	return e.Handle(), nil
}

// Release takes a lease back. The reader is kept for reuse unless the factory
// is closing or the dataset is locked, in which case it is closed.
func (f *Factory) Release(h *lease.Handle) error {
	e := h.Entry()
	key := e.Key()
	s := f.shardFor(key)

	s.mu.Lock()
	if e.State() != lease.Leased {
		state := e.State()
		s.mu.Unlock()
		f.log.WithFields(logrus.Fields{"dataset": key, "entry": e.ID(), "state": state}).Warn("release of handle that is not leased")
		return fmt.Errorf("%w: %q entry %s is %s", ErrNotLeased, key, e.ID(), state)
	}

	var (
		r      dataset.Reader
		reason string
	)
	switch {
	case f.closing.Load():
		r, reason = s.slots.Remove(e), "closing"
	case s.locks.IsLocked(key):
		r, reason = s.slots.Remove(e), "locked"
	default:
		s.slots.Release(e)
	}
	s.mu.Unlock()

	f.releases.Inc()
	if reason != "" {
		f.evictions.Inc()
		f.closeReader(key, r, reason)
	}
	return nil
}

// Lock takes the exclusive lock on key and closes its idle readers. It fails
// with ErrRetryLock while any reader for key is leased or key is already locked.
func (f *Factory) Lock(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	s := f.shardFor(key)

	s.mu.Lock()
	if f.closing.Load() {
		s.mu.Unlock()
		return fmt.Errorf("%w: lock %q", ErrClosing, key)
	}
	if s.locks.IsLocked(key) || s.slots.Leased(key) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrRetryLock, key)
	}
	s.locks.Lock(key, f.holder, f.now())
	evicted := s.slots.EvictFree(key)
	s.mu.Unlock()

	f.evictions.Add(int64(len(evicted)))
	for _, r := range evicted {
		f.closeReader(key, r, "locked")
	}
	f.log.WithFields(logrus.Fields{"dataset": key, "holder": f.holder, "evicted": len(evicted)}).Debug("locked")
	return nil
}

// Unlock releases the lock on key. Unlocking a key that is not locked does nothing.
func (f *Factory) Unlock(key string) {
	s := f.shardFor(key)
	s.mu.Lock()
	unlocked := s.locks.Unlock(key)
	s.mu.Unlock()

	if unlocked {
		f.log.WithField("dataset", key).Debug("unlocked")
	}
}

// Close stops the factory. Idle readers are closed immediately; leased readers
// stay open until their handles are released. Calling Close again does nothing.
func (f *Factory) Close() error {
	if !f.closing.CompareAndSwap(false, true) {
		return nil
	}

	var readers []dataset.Reader
	for _, s := range f.shards {
		s.mu.Lock()
		readers = append(readers, s.slots.SweepFree()...)
		s.mu.Unlock()
	}

	var errs []error
	for _, r := range readers {
		if err := f.closeReader(r.Name(), r, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	f.evictions.Add(int64(len(readers)))
	f.log.WithField("closed", len(readers)).Info("reader factory closed")
	return errors.Join(errs...)
}

func (f *Factory) closeReader(key string, r dataset.Reader, reason string) error {
	if r == nil {
		return nil
	}
	f.closes.Inc()
	if err := r.Close(); err != nil {
		f.closeErrors.Inc()
		f.log.WithError(err).WithFields(logrus.Fields{"dataset": key, "reason": reason}).Error("failed to close reader")
		return fmt.Errorf("close %q: %w", key, err)
	}
	f.log.WithFields(logrus.Fields{"dataset": key, "reason": reason}).Debug("closed reader")
	return nil
}

// KeyStats is the pool state of one dataset.
type KeyStats struct {
	Key      string    `json:"key"`
	Free     int       `json:"free"`
	Leased   int       `json:"leased"`
	Locked   bool      `json:"locked"`
	Holder   string    `json:"holder,omitempty"`
	LockedAt *time.Time `json:"locked_at,omitempty"`
}

// Stats returns the state of every dataset with entries or a lock, sorted by key.
func (f *Factory) Stats() []KeyStats {
	var out []KeyStats
	for _, s := range f.shards {
		s.mu.Lock()
		seen := make(map[string]bool)
		for _, key := range append(s.slots.Keys(), s.locks.Keys()...) {
			if seen[key] {
				continue
			}
			seen[key] = true
			st := KeyStats{Key: key}
			st.Free, st.Leased = s.slots.Counts(key)
			if l, ok := s.locks.Get(key); ok {
				st.Locked = true
				st.Holder = l.Holder
				lockedAt := l.LockedAt
				st.LockedAt = &lockedAt
			}
			out = append(out, st)
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Entries describes the pooled entries of key.
func (f *Factory) Entries(key string) []lease.Snapshot {
	s := f.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots.Snapshots(key)
}

// Counters are cumulative totals since the factory was created.
type Counters struct {
	Opens       int64 `json:"opens"`
	Reuses      int64 `json:"reuses"`
	Releases    int64 `json:"releases"`
	Evictions   int64 `json:"evictions"`
	Closes      int64 `json:"closes"`
	OpenErrors  int64 `json:"open_errors"`
	CloseErrors int64 `json:"close_errors"`
}

func (f *Factory) Counters() Counters {
	return Counters{
		Opens:       f.opens.Load(),
		Reuses:      f.reuses.Load(),
		Releases:    f.releases.Load(),
		Evictions:   f.evictions.Load(),
		Closes:      f.closes.Load(),
		OpenErrors:  f.openErrors.Load(),
		CloseErrors: f.closeErrors.Load(),
	}
}
