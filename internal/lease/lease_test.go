package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/Kashuab/readerpool/internal/dataset/memory"
	"github.com/Kashuab/readerpool/internal/lease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReleaser struct {
	released []*lease.Handle
}

func (c *countingReleaser) Release(h *lease.Handle) error {
	c.released = append(c.released, h)
	return nil
}

func TestEntryLifecycle(t *testing.T) {
	rel := &countingReleaser{}
	now := time.Now()
	e := lease.NewEntry("x", rel, now)

	assert.Equal(t, lease.Leased, e.State())
	assert.NotEmpty(t, e.ID())
	assert.False(t, e.Handle().IsOpen(), "no reader attached yet")

	store := memory.New()
	store.Create("x")
	r, err := store.Open(context.Background(), dataset.Metadata{Name: "x"})
	require.NoError(t, err)
	e.Attach(r)
	assert.True(t, e.Handle().IsOpen())
	assert.Same(t, r, e.Handle().Reader())

	e.Free()
	snap := e.Snapshot()
	assert.Equal(t, "free", snap.State)
	assert.True(t, snap.LeasedAt.IsZero())

	e.Lease(now.Add(time.Second))
	assert.EqualValues(t, 2, e.Snapshot().Leases)

	require.NoError(t, e.Handle().Close())
	require.Len(t, rel.released, 1)
	assert.Same(t, e.Handle(), rel.released[0])

	got := e.MarkClosed()
	assert.Same(t, r, got)
	assert.Equal(t, lease.Closed, e.State())
}

func TestEntryRejectsIllegalTransitions(t *testing.T) {
	e := lease.NewEntry("x", &countingReleaser{}, time.Now())
	assert.Panics(t, func() { e.Lease(time.Now()) }, "lease of leased entry")

	e.Free()
	assert.Panics(t, func() { e.Free() }, "free of free entry")

	e.MarkClosed()
	assert.Panics(t, func() { e.MarkClosed() }, "double close")
	assert.Panics(t, func() { e.Lease(time.Now()) }, "lease of closed entry")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "free", lease.Free.String())
	assert.Equal(t, "leased", lease.Leased.String())
	assert.Equal(t, "closed", lease.Closed.String())
	assert.Equal(t, "state(9)", lease.State(9).String())
}
