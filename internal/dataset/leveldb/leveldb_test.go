package leveldb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Kashuab/readerpool/internal/dataset"
	leveldbds "github.com/Kashuab/readerpool/internal/dataset/leveldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

func createDataset(t *testing.T, root, name string, pairs map[string]string) {
	t.Helper()
	db, err := leveldb.OpenFile(filepath.Join(root, name), nil)
	require.NoError(t, err)
	for k, v := range pairs {
		require.NoError(t, db.Put([]byte(k), []byte(v), nil))
	}
	require.NoError(t, db.Close())
}

func TestOpenAndRead(t *testing.T) {
	root := t.TempDir()
	createDataset(t, root, "trades", map[string]string{"a": "1", "b": "2"})

	o := leveldbds.New(root, 1<<20)
	r, err := o.Open(context.Background(), dataset.Metadata{Name: "trades"})
	require.NoError(t, err)
	assert.Equal(t, "trades", r.Name())
	assert.True(t, r.IsOpen())

	v, err := r.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	// second lookup may be served by the hot cache
	v, err = r.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	_, err = r.Get([]byte("missing"))
	assert.ErrorIs(t, err, dataset.ErrKeyNotFound)

	var keys []string
	require.NoError(t, r.ForEach(func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, r.Close())
	assert.False(t, r.IsOpen())
	assert.ErrorIs(t, r.Close(), dataset.ErrReaderClosed)
	_, err = r.Get([]byte("a"))
	assert.ErrorIs(t, err, dataset.ErrReaderClosed)
}

func TestOpenWithoutHotCache(t *testing.T) {
	root := t.TempDir()
	createDataset(t, root, "quotes", map[string]string{"k": "v"})

	o := leveldbds.New(root, 0)
	r, err := o.Open(context.Background(), dataset.Metadata{Name: "quotes"})
	require.NoError(t, err)
	defer r.Close()

	v, err := r.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestOpenPathOverride(t *testing.T) {
	root := t.TempDir()
	elsewhere := t.TempDir()
	createDataset(t, elsewhere, "moved", map[string]string{"k": "v"})

	o := leveldbds.New(root, 0)
	r, err := o.Open(context.Background(), dataset.Metadata{Name: "trades", Path: filepath.Join(elsewhere, "moved")})
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "trades", r.Name())
}

func TestOpenMissing(t *testing.T) {
	o := leveldbds.New(t.TempDir(), 0)
	_, err := o.Open(context.Background(), dataset.Metadata{Name: "nope"})
	assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
}
