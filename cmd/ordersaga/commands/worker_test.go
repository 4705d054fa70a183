package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/ordersaga/internal/config"
	"github.com/slok/ordersaga/internal/log"
)

func TestLoadWorkerConfig(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "worker.yaml")
	require.NoError(t, os.WriteFile(good, []byte("tasks:\n  concurrency: 8\n  poll_interval: 250ms\n"), 0o600))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("schedules:\n  expire_transactions: nope\n"), 0o600))

	tests := map[string]struct {
		path   string
		expCfg func() config.Worker
		expErr bool
	}{
		"No path should use the defaults.": {
			expCfg: config.Default,
		},

		"A tuning file should override the defaults.": {
			path: good,
			expCfg: func() config.Worker {
				c := config.Default()
				c.Tasks.Concurrency = 8
				c.Tasks.PollInterval = 250 * time.Millisecond
				return c
			},
		},

		"An invalid schedule should fail.": {
			path:   bad,
			expErr: true,
		},

		"A missing file should fail.": {
			path:   filepath.Join(dir, "missing.yaml"),
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := loadWorkerConfig(context.Background(), test.path)
			if test.expErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expCfg(), cfg)
		})
	}
}

func TestNewSweepers(t *testing.T) {
	cfg := config.Default()
	c, err := newSweepers(context.Background(), cfg, nil, nil, nil, log.Noop)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 3)

	cfg.Schedules.RequeueStaleTasks = "every now and then"
	_, err = newSweepers(context.Background(), cfg, nil, nil, nil, log.Noop)
	assert.Error(t, err)
}

func TestCronLoggerKv(t *testing.T) {
	tests := map[string]struct {
		kvs   []any
		expKv log.Kv
	}{
		"Pairs should be mapped.": {
			kvs:   []any{"job", "expire", "attempt", 2},
			expKv: log.Kv{"job": "expire", "attempt": 2},
		},
		"A dangling key should be ignored.": {
			kvs:   []any{"job", "expire", "orphan"},
			expKv: log.Kv{"job": "expire"},
		},
		"No values should return an empty map.": {
			expKv: log.Kv{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expKv, kv(test.kvs))
		})
	}
}
