package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/Kashuab/readerpool/internal/dataset/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderSeesSnapshot(t *testing.T) {
	s := memory.New()
	s.Seed("x", "k", "v1")

	r, err := s.Open(context.Background(), dataset.Metadata{Name: "x"})
	require.NoError(t, err)
	s.Seed("x", "k", "v2")

	v, err := r.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))
	assert.EqualValues(t, 1, s.Live())

	require.NoError(t, r.Close())
	assert.EqualValues(t, 0, s.Live())
	assert.EqualValues(t, 1, s.Opened())
	assert.ErrorIs(t, r.Close(), dataset.ErrReaderClosed)
	assert.EqualValues(t, 0, s.Live())
}

func TestForEachOrdered(t *testing.T) {
	s := memory.New()
	s.Seed("x", "b", "2")
	s.Seed("x", "a", "1")

	r, err := s.Open(context.Background(), dataset.Metadata{Name: "x"})
	require.NoError(t, err)
	defer r.Close()

	var keys []string
	require.NoError(t, r.ForEach(func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestOpenFailures(t *testing.T) {
	s := memory.New()
	_, err := s.Open(context.Background(), dataset.Metadata{Name: "x"})
	assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)

	s.Create("x")
	boom := errors.New("boom")
	s.FailOpen("x", boom)
	_, err = s.Open(context.Background(), dataset.Metadata{Name: "x"})
	assert.Equal(t, boom, err)

	s.FailOpen("x", nil)
	r, err := s.Open(context.Background(), dataset.Metadata{Name: "x"})
	require.NoError(t, err)
	require.NoError(t, r.Close())
}
