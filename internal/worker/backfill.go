package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

// BackfillStore is what the backfill needs from storage.
type BackfillStore interface {
	UncategorizedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	LookupRule(ctx context.Context, description string) (string, bool, error)
	UpdateCategory(ctx context.Context, transactionID, category string, learn bool) error
}

type BackfillConfig struct {
	// PollInterval is how often uncategorized transactions are rechecked (default: 1m)
	PollInterval time.Duration

	// BatchSize caps transactions examined per pass (default: 200)
	BatchSize int
}

func DefaultBackfillConfig() BackfillConfig {
	return BackfillConfig{
		PollInterval: time.Minute,
		BatchSize:    200,
	}
}

// Backfill periodically applies learned rules to transactions still in
// the default category.
type Backfill struct {
	store  BackfillStore
	config BackfillConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewBackfill(store BackfillStore, config BackfillConfig) *Backfill {
	def := DefaultBackfillConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	return &Backfill{store: store, config: config}
}

// Start runs one pass immediately and then one per poll interval.
func (b *Backfill) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("backfill is already running")
	}
	b.running = true
	b.stopCh = make(chan struct{})
	b.doneCh = make(chan struct{})
	stopCh, doneCh := b.stopCh, b.doneCh
	b.mu.Unlock()

	go b.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Rule backfill started",
		"poll_interval", b.config.PollInterval,
		"batch_size", b.config.BatchSize)
	return nil
}

// Stop waits for the loop to exit or ctx to expire. After a timeout the
// backfill still counts as running and Stop may be called again.
func (b *Backfill) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil
	}
	if b.stopCh != nil {
		close(b.stopCh)
		b.stopCh = nil
	}
	doneCh := b.doneCh
	b.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Rule backfill stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Rule backfill stop timed out")
		return ctx.Err()
	}

	b.mu.Lock()
	if b.doneCh == doneCh {
		b.running = false
	}
	b.mu.Unlock()
	return nil
}

func (b *Backfill) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Backfill) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	b.pass(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.pass(ctx)
		}
	}
}

func (b *Backfill) pass(ctx context.Context) {
	n, err := b.RunOnce(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Rule backfill pass failed",
			log.NewFields().WithOperation(log.OpUpdate).WithError(err).ToSlice()...)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Rule backfill recategorized transactions", "count", n)
	}
}

// RunOnce applies rules to one batch and returns how many transactions
// changed. Per-transaction failures are logged and skipped.
func (b *Backfill) RunOnce(ctx context.Context) (int, error) {
	txs, err := b.store.UncategorizedTransactions(ctx, b.config.BatchSize)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, tx := range txs {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		category, ok, err := b.store.LookupRule(ctx, tx.Description)
		if err != nil {
			slog.WarnContext(ctx, "Rule lookup failed",
				log.NewFields().WithTransaction(tx.ID, "").WithError(err).ToSlice()...)
			continue
		}
		if !ok || category == tx.Category {
			continue
		}
		if err := b.store.UpdateCategory(ctx, tx.ID, category, false); err != nil {
			slog.WarnContext(ctx, "Failed to apply rule",
				log.NewFields().WithTransaction(tx.ID, category).WithError(err).ToSlice()...)
			continue
		}
		changed++
	}
	return changed, nil
}
