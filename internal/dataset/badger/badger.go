package badger

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/atomic"
)

const StorageName = "badger"

// Opener opens Badger data sets stored as directories under Root in read-only mode.
type Opener struct {
	Root string
}

func New(root string) *Opener {
	return &Opener{Root: root}
}

func (o *Opener) Open(_ context.Context, meta dataset.Metadata) (dataset.Reader, error) {
	path := meta.Location(o.Root)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", dataset.ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat dataset %q: %w", meta.Name, err)
	}

	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger dataset %q: %w", meta.Name, err)
	}
	return &Reader{name: meta.Name, db: db, open: atomic.NewBool(true)}, nil
}

func (o *Opener) Close() error {
	return nil
}

type Reader struct {
	name string
	db   *badger.DB
	open *atomic.Bool
}

func (r *Reader) Name() string { return r.name }

func (r *Reader) Get(key []byte) ([]byte, error) {
	if !r.open.Load() {
		return nil, dataset.ErrReaderClosed
	}
	var v []byte
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		v, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, dataset.ErrKeyNotFound
	}
	return v, err
}

// ForEach iterates the whole data set. key and value are only valid during the call.
func (r *Reader) ForEach(fn func(key, value []byte) error) error {
	if !r.open.Load() {
		return dataset.ErrReaderClosed
	}
	return r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			if err := item.Value(func(value []byte) error {
				return fn(key, value)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Reader) IsOpen() bool { return r.open.Load() }

func (r *Reader) Close() error {
	if !r.open.CompareAndSwap(true, false) {
		return dataset.ErrReaderClosed
	}
	return r.db.Close()
}
