// Package conventions has the on-disk layout shared by the CLI and the SDK.
package conventions

import (
	"path/filepath"

	"k8s.io/client-go/util/homedir"
)

const (
	// DefaultDataDir is the default ordersaga data directory name (relative to home).
	DefaultDataDir = ".ordersaga"
	// DBFile is the SQLite database filename.
	DBFile = "ordersaga.db"
	// WorkerConfigFile is the worker tuning filename.
	WorkerConfigFile = "worker.yaml"
)

// DataDir returns the default data directory of the current user.
func DataDir() string {
	return filepath.Join(homedir.HomeDir(), DefaultDataDir)
}

// DBPath returns the SQLite database path inside a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// WorkerConfigPath returns the worker tuning file path inside a data directory.
func WorkerConfigPath(dataDir string) string {
	return filepath.Join(dataDir, WorkerConfigFile)
}
