package backend

import (
	"context"
	"time"

	"spendlens/internal/services"
)

// Backend is the statement source behind the analytics facade. Uploads
// and category edits are optional capabilities checked at call time.
type Backend = services.StatementService

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Check reports whether a dependency can serve traffic.
type Check func(ctx context.Context) error

// BackendResult contains the backend instance and the resources created
// alongside it.
type BackendResult struct {
	Backend Backend
	// Publisher is nil when no broker is configured or reachable.
	Publisher services.EventPublisher
	Checks    map[string]Check
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Remote statement service
	APIURL     string
	APITimeout time.Duration
	APIRate    int

	// Cache for per-statement reads from remote sources
	CacheTTL  time.Duration
	CacheSize int

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	MemorySeedFile string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Optional category change events, any backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	APIBackend    BackendType = "api"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case APIBackend, MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
