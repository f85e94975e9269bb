package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"spendlens/internal/core"
	"spendlens/internal/log"
	ports "spendlens/internal/statements"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02T15:04:05"

// Ensure interface conformance
var (
	_ ports.SummaryLister     = (*SQLiteRepository)(nil)
	_ ports.SummaryReader     = (*SQLiteRepository)(nil)
	_ ports.StatementLister   = (*SQLiteRepository)(nil)
	_ ports.StatementReader   = (*SQLiteRepository)(nil)
	_ ports.CategoryUpdater   = (*SQLiteRepository)(nil)
	_ ports.StatementUploader = (*SQLiteRepository)(nil)
	_ ports.TransactionReader = (*SQLiteRepository)(nil)
)

var ErrDuplicateStatement = errors.New("statement already imported")

type SQLiteRepository struct {
	db         *sql.DB
	queries    *Queries
	categorize ports.Categorizer
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "db_path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

// SetCategorizer sets how uploaded transactions without a category are labelled.
func (r *SQLiteRepository) SetCategorizer(c ports.Categorizer) {
	r.categorize = c
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ImportStatement stores a statement and its transactions atomically.
func (r *SQLiteRepository) ImportStatement(ctx context.Context, st core.Statement) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("validate statement: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if _, err := q.GetStatement(ctx, st.ID); err == nil {
		return fmt.Errorf("statement %s: %w", st.ID, ErrDuplicateStatement)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check statement: %w", err)
	}

	err = q.CreateStatement(ctx, StatementRow{
		ID:         st.ID,
		Filename:   st.Filename,
		Month:      int64(st.Month),
		Year:       int64(st.Year),
		UploadDate: st.UploadDate.UTC().Format(dateLayout),
	})
	if err != nil {
		return fmt.Errorf("create statement: %w", err)
	}
	for i, t := range st.Transactions {
		err := q.CreateTransaction(ctx, TransactionRow{
			ID:          t.ID,
			StatementID: st.ID,
			Position:    int64(i),
			PostDate:    t.PostDate.UTC().Format(dateLayout),
			InvDate:     t.InvDate.UTC().Format(dateLayout),
			Description: t.Description,
			AmountCents: core.ToCents(t.Amount),
			Category:    t.Category,
		})
		if err != nil {
			return fmt.Errorf("create transaction %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	fields := log.NewFields().WithStatement(st.ID, st.Year, st.Month)
	slog.InfoContext(ctx, "Statement saved to SQLite",
		append(fields.ToSlice(), "transactions", len(st.Transactions))...)
	return nil
}

// ListSummaries aggregates category totals in SQL. Statements without
// transactions yield an empty summary.
func (r *SQLiteRepository) ListSummaries(ctx context.Context, filter core.SummaryFilter) ([]core.StatementSummary, error) {
	rows, err := r.queries.ListStatements(ctx, int64(filter.Month), int64(filter.Year))
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	sums, err := r.queries.CategorySums(ctx, "", int64(filter.Month), int64(filter.Year))
	if err != nil {
		return nil, fmt.Errorf("category sums: %w", err)
	}
	return buildSummaries(rows, sums), nil
}

func (r *SQLiteRepository) StatementSummary(ctx context.Context, id string) (core.StatementSummary, error) {
	row, err := r.queries.GetStatement(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StatementSummary{}, fmt.Errorf("statement %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.StatementSummary{}, fmt.Errorf("get statement: %w", err)
	}
	sums, err := r.queries.CategorySums(ctx, id, 0, 0)
	if err != nil {
		return core.StatementSummary{}, fmt.Errorf("category sums: %w", err)
	}
	return buildSummaries([]StatementRow{row}, sums)[0], nil
}

func buildSummaries(rows []StatementRow, sums []CategorySumRow) []core.StatementSummary {
	byStatement := make(map[string]core.CategoryTotals, len(rows))
	for _, s := range sums {
		byStatement[s.StatementID] = byStatement[s.StatementID].Add(s.Category, core.FromCents(s.TotalCents))
	}
	out := make([]core.StatementSummary, 0, len(rows))
	for _, row := range rows {
		totals := core.CanonicalOrder(byStatement[row.ID])
		out = append(out, core.StatementSummary{
			ID:      row.ID,
			Month:   int(row.Month),
			Year:    int(row.Year),
			Summary: totals,
			Total:   totals.Sum(),
		})
	}
	return out
}

func (r *SQLiteRepository) ListStatements(ctx context.Context) ([]core.Statement, error) {
	rows, err := r.queries.ListStatements(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	out := make([]core.Statement, 0, len(rows))
	for _, row := range rows {
		st, err := r.loadStatement(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *SQLiteRepository) Statement(ctx context.Context, id string) (core.Statement, error) {
	row, err := r.queries.GetStatement(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Statement{}, fmt.Errorf("statement %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Statement{}, fmt.Errorf("get statement: %w", err)
	}
	return r.loadStatement(ctx, row)
}

func (r *SQLiteRepository) loadStatement(ctx context.Context, row StatementRow) (core.Statement, error) {
	txRows, err := r.queries.ListTransactions(ctx, row.ID)
	if err != nil {
		return core.Statement{}, fmt.Errorf("list transactions for %s: %w", row.ID, err)
	}
	uploaded, err := core.ParseDate(row.UploadDate)
	if err != nil {
		return core.Statement{}, err
	}
	st := core.Statement{
		ID:           row.ID,
		Filename:     row.Filename,
		Month:        int(row.Month),
		Year:         int(row.Year),
		UploadDate:   uploaded,
		Transactions: make([]core.Transaction, 0, len(txRows)),
	}
	for _, t := range txRows {
		tx, err := toTransaction(t)
		if err != nil {
			return core.Statement{}, err
		}
		st.Transactions = append(st.Transactions, tx)
	}
	return st, nil
}

func toTransaction(t TransactionRow) (core.Transaction, error) {
	post, err := core.ParseDate(t.PostDate)
	if err != nil {
		return core.Transaction{}, err
	}
	inv, err := core.ParseDate(t.InvDate)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          t.ID,
		PostDate:    post,
		InvDate:     inv,
		Description: t.Description,
		Amount:      core.FromCents(t.AmountCents),
		Category:    t.Category,
	}, nil
}

func (r *SQLiteRepository) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toTransaction(row)
}

// UncategorizedTransactions returns up to limit transactions still in
// the default category.
func (r *SQLiteRepository) UncategorizedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByCategory(ctx, core.DefaultCategory, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list uncategorized transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// UpdateCategory relabels a transaction. Learning is handled by the
// rule worker, so learn is ignored here.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, transactionID, category string, _ bool) error {
	if !core.IsValidCategory(category) {
		return core.Reject(core.ReasonInvalidCategory, category)
	}
	n, err := r.queries.UpdateTransactionCategory(ctx, transactionID, category)
	if err != nil {
		return fmt.Errorf("update transaction category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", transactionID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction category updated",
		log.NewFields().WithTransaction(transactionID, category).ToSlice()...)
	return nil
}

// UploadStatement imports a JSON statement export.
func (r *SQLiteRepository) UploadStatement(ctx context.Context, filename string, file io.Reader, _ string) (core.UploadResult, error) {
	st, err := ports.DecodeStatement(ctx, file, filename, r.categorize)
	if err != nil {
		return core.UploadResult{}, err
	}
	if err := r.ImportStatement(ctx, st); err != nil {
		if errors.Is(err, ErrDuplicateStatement) {
			return core.UploadResult{}, core.Reject(core.ReasonInvalidFormat, err.Error())
		}
		return core.UploadResult{}, err
	}
	return core.UploadResult{ID: st.ID, Filename: st.Filename, Month: st.Month, Year: st.Year}, nil
}

// NormalizeDescription is the key learned rules are stored under.
func NormalizeDescription(description string) string {
	return strings.Join(strings.Fields(strings.ToUpper(description)), " ")
}

// SaveRule records that description belongs to category.
func (r *SQLiteRepository) SaveRule(ctx context.Context, description, category string) error {
	key := NormalizeDescription(description)
	if key == "" {
		return core.ErrEmptyDescription
	}
	if !core.IsValidCategory(category) {
		return core.Reject(core.ReasonInvalidCategory, category)
	}
	if err := r.queries.UpsertRule(ctx, key, category); err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	return nil
}

// LookupRule returns the learned category for description, if any.
func (r *SQLiteRepository) LookupRule(ctx context.Context, description string) (string, bool, error) {
	rule, err := r.queries.GetRule(ctx, NormalizeDescription(description))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup rule: %w", err)
	}
	return rule.Category, true, nil
}

func (r *SQLiteRepository) ListRules(ctx context.Context) ([]CategoryRule, error) {
	rules, err := r.queries.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}
