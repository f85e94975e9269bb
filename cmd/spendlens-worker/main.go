package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"spendlens/internal/amqp"
	"spendlens/internal/cli"
	"spendlens/internal/config"
	"spendlens/internal/log"
	"spendlens/internal/worker"
)

// The worker owns the learned categorization rules: it stores a rule for
// every category change event that asks to learn, and periodically
// relabels transactions still in the default category.
func main() {
	cli.LoadEnvFile()
	logger := cli.BootstrapLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, log.ComponentWorker)

	if err := run(logger, cfg); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

func run(logger *log.Logger, cfg *config.Config) error {
	logger.Info("Starting spendlens-worker", "db_path", cfg.SQLiteDBPath)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backfill := worker.NewBackfill(repo, worker.BackfillConfig{
		PollInterval: cfg.BackfillInterval,
		BatchSize:    cfg.BackfillBatchSize,
	})

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided, only backfilling")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := backfill.Stop(ctx); err != nil {
			logger.Error("Backfill shutdown error", log.FieldError, err)
		}
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if err := backfill.Start(runCtx); err != nil {
		return fmt.Errorf("start backfill: %w", err)
	}

	consumeErr := make(chan error, 1)
	if amqpClient != nil {
		learner := worker.NewRuleLearner(repo, repo)
		go func() {
			consumeErr <- learner.Run(runCtx, amqpClient)
		}()
		logger.Info("Consuming category change events",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
	}

	return supervise(ctx, done, consumeErr, cancelRun, backfill.Stop, logger)
}

// supervise blocks until shutdown completes or the consumer exits. A
// consumer exit cancels the run context and stops the backfill before
// returning, so deferred cleanup in run still happens.
func supervise(ctx context.Context, done <-chan struct{}, consumeErr <-chan error, cancelRun context.CancelFunc, stop func(context.Context) error, logger *log.Logger) error {
	select {
	case <-ctx.Done():
		<-done
		return nil
	case err := <-consumeErr:
		cancelRun()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if stopErr := stop(stopCtx); stopErr != nil {
			logger.Error("Backfill shutdown error", log.FieldError, stopErr)
		}
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("consume category changes: %w", err)
	}
}
