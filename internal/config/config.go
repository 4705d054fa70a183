// Package config loads the worker tuning file.
package config

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Worker is the tuning of the worker process. Unset fields keep their defaults.
type Worker struct {
	Tasks     TasksConfig     `yaml:"tasks"`
	Export    ExportConfig    `yaml:"export"`
	Provider  ProviderConfig  `yaml:"provider"`
	Lock      LockConfig      `yaml:"lock"`
	Schedules SchedulesConfig `yaml:"schedules"`
}

// TasksConfig tunes the task execution queue.
type TasksConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
	// StaleAfter is how long a task can be running before it's requeued.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// ExportConfig tunes the task exporter.
type ExportConfig struct {
	Exporters       int           `yaml:"exporters"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`
	StuckGrace      time.Duration `yaml:"stuck_grace"`
}

// ProviderConfig tunes the calls to the providers.
type ProviderConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the provider circuit breakers.
type BreakerConfig struct {
	MaxFailures      int           `yaml:"max_failures"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	HalfOpenRequests uint32        `yaml:"half_open_requests"`
}

// LockConfig tunes the offer locks.
type LockConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// SchedulesConfig has the cron schedules of the sweepers.
type SchedulesConfig struct {
	ExpireTransactions string `yaml:"expire_transactions"`
	ResetStuckExports  string `yaml:"reset_stuck_exports"`
	RequeueStaleTasks  string `yaml:"requeue_stale_tasks"`
}

// Default returns the default worker tuning.
func Default() Worker {
	return Worker{
		Tasks: TasksConfig{
			Concurrency:    4,
			PollInterval:   time.Second,
			BackoffBase:    10 * time.Second,
			BackoffMax:     time.Hour,
			HandlerTimeout: 5 * time.Minute,
			StaleAfter:     15 * time.Minute,
		},
		Export: ExportConfig{
			Exporters:       1,
			PollInterval:    time.Second,
			MaxPollInterval: 30 * time.Second,
			StuckGrace:      10 * time.Minute,
		},
		Provider: ProviderConfig{
			Timeout: 10 * time.Second,
			Breaker: BreakerConfig{
				MaxFailures:      5,
				OpenTimeout:      30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Lock: LockConfig{TTL: 30 * time.Second},
		Schedules: SchedulesConfig{
			ExpireTransactions: "@every 1m",
			ResetStuckExports:  "@every 5m",
			RequeueStaleTasks:  "@every 5m",
		},
	}
}

func (w Worker) validate() error {
	if w.Tasks.Concurrency <= 0 {
		return fmt.Errorf("tasks concurrency must be positive, got: %d", w.Tasks.Concurrency)
	}
	if w.Tasks.BackoffBase <= 0 || w.Tasks.BackoffMax < w.Tasks.BackoffBase {
		return fmt.Errorf("tasks backoff must be positive and max can't be lower than base")
	}
	if w.Tasks.StaleAfter <= w.Tasks.HandlerTimeout {
		return fmt.Errorf("tasks stale_after must be greater than the handler timeout")
	}
	if w.Export.Exporters <= 0 {
		return fmt.Errorf("export exporters must be positive, got: %d", w.Export.Exporters)
	}
	if w.Provider.RequestsPerSecond < 0 {
		return fmt.Errorf("provider requests_per_second can't be negative")
	}
	if w.Lock.TTL <= 0 {
		return fmt.Errorf("lock ttl must be positive")
	}

	for name, spec := range map[string]string{
		"expire_transactions": w.Schedules.ExpireTransactions,
		"reset_stuck_exports": w.Schedules.ResetStuckExports,
		"requeue_stale_tasks": w.Schedules.RequeueStaleTasks,
	} {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}

	return nil
}

// YAMLLoader loads worker tuning files.
type YAMLLoader struct {
	fs fs.FS
}

// NewYAMLLoader returns a new YAML worker tuning loader.
func NewYAMLLoader(filesystem fs.FS) *YAMLLoader {
	return &YAMLLoader{fs: filesystem}
}

// Load loads a tuning file over the defaults and validates the result.
func (l *YAMLLoader) Load(ctx context.Context, path string) (Worker, error) {
	data, err := fs.ReadFile(l.fs, path)
	if err != nil {
		return Worker{}, fmt.Errorf("reading worker config file: %w", err)
	}

	if ctx.Err() != nil {
		return Worker{}, ctx.Err()
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Worker{}, fmt.Errorf("parsing YAML: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Worker{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
