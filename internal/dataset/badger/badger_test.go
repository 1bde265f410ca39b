package badger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Kashuab/readerpool/internal/dataset"
	badgerds "github.com/Kashuab/readerpool/internal/dataset/badger"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDataset(t *testing.T, root, name string, pairs map[string]string) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(filepath.Join(root, name)).WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		for k, v := range pairs {
			if err := txn.Set([]byte(k), []byte(v)); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, db.Close())
}

func TestOpenAndRead(t *testing.T) {
	root := t.TempDir()
	createDataset(t, root, "trades", map[string]string{"a": "1", "b": "2"})

	o := badgerds.New(root)
	r, err := o.Open(context.Background(), dataset.Metadata{Name: "trades"})
	require.NoError(t, err)
	assert.True(t, r.IsOpen())

	v, err := r.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	_, err = r.Get([]byte("missing"))
	assert.ErrorIs(t, err, dataset.ErrKeyNotFound)

	all := map[string]string{}
	require.NoError(t, r.ForEach(func(k, v []byte) error {
		all[string(k)] = string(v)
		return nil
	}))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)

	require.NoError(t, r.Close())
	assert.False(t, r.IsOpen())
	assert.ErrorIs(t, r.Close(), dataset.ErrReaderClosed)
}

func TestOpenMissing(t *testing.T) {
	o := badgerds.New(t.TempDir())
	_, err := o.Open(context.Background(), dataset.Metadata{Name: "nope"})
	assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
}
