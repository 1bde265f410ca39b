package dataset

import (
	"context"
	"errors"
	"path/filepath"
)

var (
	ErrDatasetNotFound = errors.New("readerpool: dataset not found")
	ErrKeyNotFound     = errors.New("readerpool: key not found in dataset")
	ErrReaderClosed    = errors.New("readerpool: reader is closed")
)

// Metadata identifies a data set. Name is the pool key.
type Metadata struct {
	Name string `json:"name" mapstructure:"name"`
	// Path overrides the location derived from the backend root.
	Path string `json:"path,omitempty" mapstructure:"path"`
}

// Location returns Path when set, otherwise Name joined onto root.
func (m Metadata) Location(root string) string {
	if m.Path != "" {
		return m.Path
	}
	return filepath.Join(root, m.Name)
}

// Reader is one physically open data set.
type Reader interface {
	// Name returns the data set name the reader was opened for.
	Name() string

	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(key []byte) ([]byte, error)

	// ForEach calls fn for every pair in key order until fn returns an error.
	ForEach(fn func(key, value []byte) error) error

	// IsOpen reports whether the underlying resources are still held.
	IsOpen() bool

	// Close releases the underlying resources.
	// Returns ErrReaderClosed if the reader was already closed.
	Close() error
}

// Opener opens physical readers. Implementations must be safe for concurrent use.
type Opener interface {
	// Open opens a new reader for the data set described by meta.
	// Returns ErrDatasetNotFound if the data set does not exist.
	Open(ctx context.Context, meta Metadata) (Reader, error)

	// Close releases any resources held by the opener itself.
	Close() error
}
