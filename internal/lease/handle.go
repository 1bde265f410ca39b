package lease

import "github.com/Kashuab/readerpool/internal/dataset"

// Handle is the caller's view of a leased entry. The same Handle is returned
// every time its entry is leased again.
type Handle struct {
	entry    *Entry
	releaser Releaser
}

func (h *Handle) Key() string { return h.entry.key }
func (h *Handle) ID() string  { return h.entry.id }

// Entry returns the pooled entry behind the handle.
func (h *Handle) Entry() *Entry { return h.entry }

// Reader returns the physical reader. Only valid while the handle is leased.
func (h *Handle) Reader() dataset.Reader { return h.entry.reader }

// IsOpen reports whether the physical reader behind the handle is still open.
func (h *Handle) IsOpen() bool {
	r := h.entry.reader
	return r != nil && r.IsOpen()
}

// Release hands the lease back. Depending on pool state the reader is kept
// for reuse or closed. A handle must not be used after its release: once the
// entry is leased again the same Handle belongs to the new caller, and a
// second Release would end that caller's lease.
func (h *Handle) Release() error {
	return h.releaser.Release(h)
}

// Close is Release, so a Handle can be used as an io.Closer.
func (h *Handle) Close() error {
	return h.Release()
}
