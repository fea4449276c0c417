// Package storage defines the persistence interface for the
// supervisor's audit trail: events, check results, and repair records.
package storage

import (
	"context"

	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/events"
	"github.com/sentinel-ops/sentinel/internal/repair"
	"github.com/sentinel-ops/sentinel/internal/storage/sqlite"
)

// Storage is the full persistence interface. The engines each depend
// only on the narrow slice they need (events.EventStore,
// checks.ResultStore, repair.RecordStore); this interface is for
// callers that own the backend's lifecycle.
type Storage interface {
	events.EventStore

	// StoreCheckResult persists one health check result
	StoreCheckResult(ctx context.Context, result *checks.Result) error
	// GetRecentCheckResults returns the most recent check results
	GetRecentCheckResults(ctx context.Context, limit int) ([]*checks.Result, error)
	// GetLatestCheckResult returns the newest result for one check
	GetLatestCheckResult(ctx context.Context, checkID string) (*checks.Result, error)

	// StoreRepairRecord persists one repair execution with its steps
	StoreRepairRecord(ctx context.Context, record *repair.ExecutionRecord) error
	// GetRecentRepairRecords returns the most recent repair executions
	GetRecentRepairRecords(ctx context.Context, limit int) ([]*repair.ExecutionRecord, error)

	// Close releases the underlying backend
	Close() error
}

// Config holds storage configuration
type Config struct {
	// Path is the SQLite database path
	Path string
}

// DefaultConfig returns the default storage configuration
func DefaultConfig() *Config {
	return &Config{
		Path: ".sentinel/sentinel.db",
	}
}

// NewStorage creates a storage backend from config
func NewStorage(cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return sqlite.New(cfg.Path)
}
