package lease

import (
	"fmt"
	"time"

	"github.com/Kashuab/readerpool/internal/dataset"
	"github.com/google/uuid"
)

// State is the bookkeeping state of a pooled entry.
type State uint8

const (
	Free State = iota
	Leased
	Closed
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Leased:
		return "leased"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Releaser takes a handle back from its caller.
type Releaser interface {
	Release(h *Handle) error
}

// Entry is one pool slot for a key. All methods except Handle and ID must be
// called with the owning table's lock held.
type Entry struct {
	id       string
	key      string
	reader   dataset.Reader
	state    State
	leasedAt time.Time
	leases   int64
	handle   *Handle
}

// NewEntry returns a leased entry with no reader attached yet.
func NewEntry(key string, releaser Releaser, now time.Time) *Entry {
	e := &Entry{
		id:       uuid.NewString(),
		key:      key,
		state:    Leased,
		leasedAt: now,
		leases:   1,
	}
	e.handle = &Handle{entry: e, releaser: releaser}
	return e
}

func (e *Entry) ID() string      { return e.id }
func (e *Entry) Key() string     { return e.key }
func (e *Entry) State() State    { return e.state }
func (e *Entry) Handle() *Handle { return e.handle }

// Attach sets the physical reader of a freshly opened entry.
func (e *Entry) Attach(r dataset.Reader) {
	if e.reader != nil {
		panic(fmt.Sprintf("lease: entry %s for %q already has a reader", e.id, e.key))
	}
	e.reader = r
}

// Lease moves a free entry to leased.
func (e *Entry) Lease(now time.Time) {
	if e.state != Free {
		panic(fmt.Sprintf("lease: cannot lease entry %s for %q in state %s", e.id, e.key, e.state))
	}
	e.state = Leased
	e.leasedAt = now
	e.leases++
}

// Free moves a leased entry back to free.
func (e *Entry) Free() {
	if e.state != Leased {
		panic(fmt.Sprintf("lease: cannot free entry %s for %q in state %s", e.id, e.key, e.state))
	}
	e.state = Free
	e.leasedAt = time.Time{}
}

// MarkClosed makes the entry terminal and returns the reader the caller must close.
// The reader is nil if the entry never finished opening.
func (e *Entry) MarkClosed() dataset.Reader {
	if e.state == Closed {
		panic(fmt.Sprintf("lease: entry %s for %q closed twice", e.id, e.key))
	}
	e.state = Closed
	return e.reader
}

// Snapshot is a point-in-time description of an entry.
type Snapshot struct {
	ID       string    `json:"id"`
	Key      string    `json:"key"`
	State    string    `json:"state"`
	LeasedAt time.Time `json:"leased_at,omitempty"`
	Leases   int64     `json:"leases"`
}

func (e *Entry) Snapshot() Snapshot {
	return Snapshot{
		ID:       e.id,
		Key:      e.key,
		State:    e.state.String(),
		LeasedAt: e.leasedAt,
		Leases:   e.leases,
	}
}
