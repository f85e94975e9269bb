// Package statements declares the ports through which the application
// reaches a Statement Service: the remote API, a local SQLite store, an
// in-memory store, or a read-only Google Sheet.
package statements

import (
	"context"
	"io"

	"spendlens/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryLister returns statement summaries, optionally filtered by period.
	SummaryLister interface {
		ListSummaries(ctx context.Context, filter core.SummaryFilter) ([]core.StatementSummary, error)
	}

	SummaryReader interface {
		// StatementSummary returns the summary of one statement.
		StatementSummary(ctx context.Context, id string) (core.StatementSummary, error)
	}

	StatementLister interface {
		ListStatements(ctx context.Context) ([]core.Statement, error)
	}

	StatementReader interface {
		Statement(ctx context.Context, id string) (core.Statement, error)
	}

	// CategoryUpdater re-categorizes one transaction. learn asks the
	// service to remember the choice for similar descriptions.
	CategoryUpdater interface {
		UpdateCategory(ctx context.Context, transactionID, category string, learn bool) error
	}

	// StatementUploader submits a statement file. password may be empty.
	StatementUploader interface {
		UploadStatement(ctx context.Context, filename string, file io.Reader, password string) (core.UploadResult, error)
	}

	// TransactionReader is an optional capability used to enrich
	// category change events with the transaction description.
	TransactionReader interface {
		Transaction(ctx context.Context, id string) (core.Transaction, error)
	}
)
