package leveldb

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/atomic"
)

const (
	StorageName = "leveldb"

	defaultHotCacheNumCounters = 1e5
)

// Opener opens LevelDB data sets stored as directories under Root in read-only mode.
type Opener struct {
	Root string
	// HotCacheSize is the per-reader ristretto budget in bytes. Zero disables the hot tier.
	HotCacheSize int64
}

func New(root string, hotCacheSize int64) *Opener {
	return &Opener{Root: root, HotCacheSize: hotCacheSize}
}

func (o *Opener) Open(_ context.Context, meta dataset.Metadata) (dataset.Reader, error) {
	path := meta.Location(o.Root)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat dataset %q: %w", meta.Name, err)
	}

	db, err := leveldb.OpenFile(path, &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb dataset %q: %w", meta.Name, err)
	}

	r := &Reader{name: meta.Name, db: db, open: atomic.NewBool(true)}
	if o.HotCacheSize > 0 {
		r.cache, err = ristretto.NewCache(&ristretto.Config[string, []byte]{
			MaxCost:     o.HotCacheSize,
			NumCounters: defaultHotCacheNumCounters,
			BufferItems: 64,
			Cost: func(value []byte) int64 {
				return int64(len(value))
			},
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create hot cache for %q: %w", meta.Name, err)
		}
	}
	return r, nil
}

func (o *Opener) Close() error {
	return nil
}

// Reader serves point lookups from a read-only LevelDB handle, keeping hot keys in ristretto.
type Reader struct {
	name  string
	db    *leveldb.DB
	cache *ristretto.Cache[string, []byte]
	open  *atomic.Bool
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) Get(key []byte) ([]byte, error) {
	if !r.open.Load() {
		return nil, dataset.ErrReaderClosed
	}
	if r.cache != nil {
		if v, ok := r.cache.Get(string(key)); ok {
			return v, nil
		}
	}

	v, err := r.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, dataset.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Set(string(key), v, 0)
	}
	return v, nil
}

// ForEach iterates the whole data set. key and value are only valid during the call.
func (r *Reader) ForEach(fn func(key, value []byte) error) error {
	if !r.open.Load() {
		return dataset.ErrReaderClosed
	}
	iter := r.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (r *Reader) IsOpen() bool { return r.open.Load() }

func (r *Reader) Close() error {
	if !r.open.CompareAndSwap(true, false) {
		return dataset.ErrReaderClosed
	}
	if r.cache != nil {
		r.cache.Close()
	}
	return r.db.Close()
}
