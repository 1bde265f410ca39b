package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/Kashuab/readerpool/internal/dataset"
	"go.uber.org/atomic"
)

// Store is a thread-safe in-memory dataset opener for testing and local development.
// It keeps count of readers it has opened so callers can check for leaks.
type Store struct {
	mu       sync.Mutex
	datasets map[string]map[string][]byte // dataset name → key → value
	failures map[string]error

	opened atomic.Int64
	live   atomic.Int64
}

func New() *Store {
	return &Store{
		datasets: make(map[string]map[string][]byte),
		failures: make(map[string]error),
	}
}

// Seed creates the data set if needed and stores a pair in it.
func (s *Store) Seed(name string, key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.datasets[name]
	if !ok {
		ds = make(map[string][]byte)
		s.datasets[name] = ds
	}
	ds[key] = []byte(value)
}

// Create registers an empty data set.
func (s *Store) Create(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasets[name]; !ok {
		s.datasets[name] = make(map[string][]byte)
	}
}

// FailOpen makes every subsequent Open of name return err. A nil err clears it.
func (s *Store) FailOpen(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, name)
		return
	}
	s.failures[name] = err
}

// Opened returns the number of readers opened over the store's lifetime.
func (s *Store) Opened() int64 { return s.opened.Load() }

// Live returns the number of readers currently open.
func (s *Store) Live() int64 { return s.live.Load() }

func (s *Store) Open(_ context.Context, meta dataset.Metadata) (dataset.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[meta.Name]; ok {
		return nil, err
	}
	ds, ok := s.datasets[meta.Name]
	if !ok {
		return nil, dataset.ErrDatasetNotFound
	}

	// readers see the data set as it was when they were opened
	snapshot := make(map[string][]byte, len(ds))
	for k, v := range ds {
		snapshot[k] = bytes.Clone(v)
	}

	s.opened.Inc()
	s.live.Inc()
	return &Reader{store: s, name: meta.Name, data: snapshot, open: atomic.NewBool(true)}, nil
}

func (s *Store) Close() error {
	return nil
}

// Reader is a point-in-time view of one in-memory data set.
type Reader struct {
	store *Store
	name  string
	data  map[string][]byte
	open  *atomic.Bool
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) Get(key []byte) ([]byte, error) {
	if !r.open.Load() {
		return nil, dataset.ErrReaderClosed
	}
	v, ok := r.data[string(key)]
	if !ok {
		return nil, dataset.ErrKeyNotFound
	}
	return v, nil
}

func (r *Reader) ForEach(fn func(key, value []byte) error) error {
	if !r.open.Load() {
		return dataset.ErrReaderClosed
	}
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), r.data[k]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) IsOpen() bool { return r.open.Load() }

func (r *Reader) Close() error {
	if !r.open.CompareAndSwap(true, false) {
		return dataset.ErrReaderClosed
	}
	r.store.live.Dec()
	return nil
}
