package cmd

import (
	"fmt"

	"github.com/Kashuab/readerpool/internal/config"
	"github.com/Kashuab/readerpool/internal/dataset"
	badgerds "github.com/Kashuab/readerpool/internal/dataset/badger"
	leveldbds "github.com/Kashuab/readerpool/internal/dataset/leveldb"
	"github.com/Kashuab/readerpool/internal/dataset/memory"
)

func newOpener(cfg config.BackendConfig) (dataset.Opener, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case leveldbds.StorageName:
		size, err := cfg.CacheBytes()
		if err != nil {
			return nil, err
		}
		return leveldbds.New(cfg.Root, size), nil
	case badgerds.StorageName:
		return badgerds.New(cfg.Root), nil
	default:
		return nil, fmt.Errorf("unknown dataset backend type: %q", cfg.Type)
	}
}

// ensureDatasets creates empty in-memory datasets so commands can run without a
// backing store. Other backends are left untouched.
func ensureDatasets(names []string) {
	store, ok := opener.(*memory.Store)
	if !ok {
		return
	}
	for _, name := range names {
		store.Create(name)
	}
}
