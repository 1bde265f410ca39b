package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Kashuab/readerpool/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, yaml string) (*config.Config, error) {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return config.Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, "leveldb", cfg.Backend.Type)
	assert.Equal(t, "data", cfg.Backend.Root)
	assert.Equal(t, 2, cfg.Pool.MaxEntries)
	assert.Equal(t, 16, cfg.Pool.Shards)
	assert.Equal(t, 10*time.Millisecond, cfg.Lock.InitialInterval)
	assert.Equal(t, 30*time.Second, cfg.Lock.MaxElapsed)

	n, err := cfg.Backend.CacheBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(8<<20), n)
}

func TestLoadFile(t *testing.T) {
	cfg, err := load(t, `
backend:
  type: badger
  root: /var/lib/readerpool
  cache_size: 0
  datasets:
    - name: trades
      path: /mnt/fast/trades
pool:
  max_entries: 4
  shards: 8
lock:
  holder: schema-migrator
  initial_interval: 5ms
  max_interval: 1s
  max_elapsed: 2m
log:
  level: debug
  format: json
`)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Backend.Type)
	assert.Equal(t, "/mnt/fast/trades", cfg.Backend.PathFor("trades"))
	assert.Equal(t, "", cfg.Backend.PathFor("quotes"))
	assert.Equal(t, 4, cfg.Pool.MaxEntries)
	assert.Equal(t, 8, cfg.Pool.Shards)
	assert.Equal(t, "schema-migrator", cfg.Lock.Holder)
	assert.Equal(t, 5*time.Millisecond, cfg.Lock.InitialInterval)
	assert.Equal(t, 2*time.Minute, cfg.Lock.MaxElapsed)
	assert.Equal(t, "json", cfg.Log.Format)

	n, err := cfg.Backend.CacheBytes()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown backend":   "backend:\n  type: s3\n",
		"zero capacity":     "pool:\n  max_entries: 0\n",
		"negative shards":   "pool:\n  shards: -1\n",
		"bad cache size":    "backend:\n  cache_size: lots\n",
		"bad log level":     "log:\n  level: loud\n",
		"bad log format":    "log:\n  format: xml\n",
		"interval ordering": "lock:\n  initial_interval: 1s\n  max_interval: 10ms\n",
		"dataset without path": `
backend:
  datasets:
    - name: trades
`,
		"duplicate dataset": `
backend:
  datasets:
    - name: trades
      path: /a
    - name: trades
      path: /b
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := load(t, yaml)
			assert.Error(t, err)
		})
	}
}

func TestMemoryBackendNeedsNoRoot(t *testing.T) {
	cfg, err := load(t, "backend:\n  type: memory\n  root: \"\"\n")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Backend.Type)
}
