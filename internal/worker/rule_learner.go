// Package worker runs the background side of category learning: it
// records rules from category change events and applies them to
// transactions that are still uncategorized.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
	"spendlens/internal/log"
	ports "spendlens/internal/statements"
)

// RuleStore persists learned description rules.
type RuleStore interface {
	SaveRule(ctx context.Context, description, category string) error
}

// Consumer delivers category change events until ctx ends.
type Consumer interface {
	ConsumeCategoryChanged(ctx context.Context, handler amqp.Handler) error
}

// RuleLearner turns category change events into stored rules.
type RuleLearner struct {
	rules RuleStore
	txs   ports.TransactionReader
}

// NewRuleLearner creates a learner. txs resolves descriptions for events
// that arrive without one and may be nil.
func NewRuleLearner(rules RuleStore, txs ports.TransactionReader) *RuleLearner {
	return &RuleLearner{rules: rules, txs: txs}
}

// Run consumes events until ctx is cancelled.
func (w *RuleLearner) Run(ctx context.Context, consumer Consumer) error {
	return consumer.ConsumeCategoryChanged(ctx, w.HandleCategoryChanged)
}

// HandleCategoryChanged stores a rule for events that ask to learn.
// Events that can never succeed are marked permanent so they are dropped
// instead of requeued.
func (w *RuleLearner) HandleCategoryChanged(ctx context.Context, msg *amqp.CategoryChangedMessage) error {
	if !msg.Learn {
		slog.DebugContext(ctx, "Skipping category change without learn flag",
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}
	if !core.IsValidCategory(msg.Category) {
		return fmt.Errorf("%w: unknown category %q", amqp.ErrPermanent, msg.Category)
	}

	description, err := w.describe(ctx, msg)
	if err != nil {
		return err
	}

	if err := w.rules.SaveRule(ctx, description, msg.Category); err != nil {
		if errors.Is(err, core.ErrEmptyDescription) || errors.Is(err, core.ErrValidationRejected) {
			return fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
		}
		return fmt.Errorf("save rule: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpLearn).
		WithTransaction(msg.TransactionID, msg.Category)
	slog.InfoContext(ctx, "Learned category rule",
		append(fields.ToSlice(), "description", description)...)
	return nil
}

func (w *RuleLearner) describe(ctx context.Context, msg *amqp.CategoryChangedMessage) (string, error) {
	if d := strings.TrimSpace(msg.Description); d != "" {
		return d, nil
	}
	if w.txs == nil {
		return "", fmt.Errorf("%w: no description for transaction %s", amqp.ErrPermanent, msg.TransactionID)
	}
	tx, err := w.txs.Transaction(ctx, msg.TransactionID)
	if errors.Is(err, core.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", amqp.ErrPermanent, err)
	}
	if err != nil {
		return "", fmt.Errorf("lookup transaction: %w", err)
	}
	return tx.Description, nil
}
