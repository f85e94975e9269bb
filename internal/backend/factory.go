package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spendlens/internal/amqp"
	"spendlens/internal/cache"
	"spendlens/internal/services"
	"spendlens/internal/statements/api"
	"spendlens/internal/statements/google"
	"spendlens/internal/statements/memory"
	"spendlens/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dialAMQP is swapped in tests.
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:   logger,
		dialAMQP: amqp.NewClient,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case APIBackend:
		result, err = f.createAPIBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}
	if result.Checks == nil {
		result.Checks = make(map[string]Check)
	}

	f.attachPublisher(result, config)
	return result, nil
}

func (f *DefaultFactory) createAPIBackend(config Config) (*BackendResult, error) {
	client, err := api.NewClient(config.APIURL,
		api.WithTimeout(config.APITimeout),
		api.WithRateLimit(config.APIRate),
		api.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize statement API client: %w", err)
	}

	f.logger.Info("Initialized statement API backend",
		"base_url", config.APIURL,
		"timeout", config.APITimeout,
		"rate_per_second", config.APIRate)

	result := f.withCache(client, config)
	result.Checks = map[string]Check{"statement_api": client.Ping}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	// Learned rules stored next to the statements take precedence over keywords.
	repo.SetCategorizer(services.NewCategorizer(repo))

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Checks:  map[string]Check{"sqlite": repo.Ping},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.NewClient(ctx, google.Options{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return f.withCache(cli, config), nil
}

// withCache wraps a remote source in a read cache when enabled.
func (f *DefaultFactory) withCache(src cache.Source, config Config) *BackendResult {
	if config.CacheTTL <= 0 {
		return &BackendResult{Backend: src}
	}
	cached := cache.NewStatements(src, config.CacheSize, config.CacheTTL)
	manager := cache.NewManager()
	cached.Register(manager)
	manager.StartCleanup(config.CacheTTL)

	f.logger.Info("Caching statement reads", "ttl", config.CacheTTL, "size", config.CacheSize)

	return &BackendResult{
		Backend: cached,
		Cleanup: func() error {
			manager.Stop()
			return nil
		},
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.MemorySeedFile,
		memory.WithCategorizer(services.NewCategorizer(nil)))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.MemorySeedFile)

	return &BackendResult{Backend: store}, nil
}

// attachPublisher connects to the broker when one is configured. A broker
// that cannot be reached only disables events.
func (f *DefaultFactory) attachPublisher(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = client
	result.Checks["amqp"] = client.Healthy

	backendCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
		if backendCleanup != nil {
			if err := backendCleanup(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
