package factory

import "errors"

var (
	ErrPoolFull   = errors.New("readerpool: all entries for dataset are leased")
	ErrLocked     = errors.New("readerpool: dataset is locked")
	ErrRetryLock  = errors.New("readerpool: dataset is busy, retry lock")
	ErrClosing    = errors.New("readerpool: factory is closing")
	ErrInvalidKey = errors.New("readerpool: dataset name is empty")
	ErrNotLeased  = errors.New("readerpool: handle is not leased")
)

// IsRetryable reports whether the operation that returned err may succeed if
// tried again without any other caller changing pool state first.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryLock)
}
