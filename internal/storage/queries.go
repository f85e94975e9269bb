package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type StatementRow struct {
	ID         string
	Filename   string
	Month      int64
	Year       int64
	UploadDate string
}

type TransactionRow struct {
	ID          string
	StatementID string
	Position    int64
	PostDate    string
	InvDate     string
	Description string
	AmountCents int64
	Category    string
}

type CategorySumRow struct {
	StatementID string
	Category    string
	TotalCents  int64
}

type CategoryRule struct {
	Description string
	Category    string
	Hits        int64
	UpdatedAt   string
}

const createStatement = `INSERT INTO statements (id, filename, month, year, upload_date) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateStatement(ctx context.Context, s StatementRow) error {
	_, err := q.db.ExecContext(ctx, createStatement, s.ID, s.Filename, s.Month, s.Year, s.UploadDate)
	return err
}

const createTransaction = `INSERT INTO transactions
(id, statement_id, position, post_date, inv_date, description, amount_cents, category)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTransaction(ctx context.Context, t TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		t.ID, t.StatementID, t.Position, t.PostDate, t.InvDate, t.Description, t.AmountCents, t.Category)
	return err
}

const listStatements = `SELECT id, filename, month, year, upload_date FROM statements
WHERE (?1 = 0 OR month = ?1) AND (?2 = 0 OR year = ?2)
ORDER BY seq`

func (q *Queries) ListStatements(ctx context.Context, month, year int64) ([]StatementRow, error) {
	rows, err := q.db.QueryContext(ctx, listStatements, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StatementRow
	for rows.Next() {
		var s StatementRow
		if err := rows.Scan(&s.ID, &s.Filename, &s.Month, &s.Year, &s.UploadDate); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getStatement = `SELECT id, filename, month, year, upload_date FROM statements WHERE id = ?`

func (q *Queries) GetStatement(ctx context.Context, id string) (StatementRow, error) {
	var s StatementRow
	err := q.db.QueryRowContext(ctx, getStatement, id).Scan(&s.ID, &s.Filename, &s.Month, &s.Year, &s.UploadDate)
	return s, err
}

const transactionColumns = `id, statement_id, position, post_date, inv_date, description, amount_cents, category`

const listTransactions = `SELECT ` + transactionColumns + ` FROM transactions WHERE statement_id = ? ORDER BY position`

func (q *Queries) ListTransactions(ctx context.Context, statementID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, statementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const listTransactionsByCategory = `SELECT ` + transactionColumns + ` FROM transactions
WHERE category = ? ORDER BY statement_id, position LIMIT ?`

func (q *Queries) ListTransactionsByCategory(ctx context.Context, category string, limit int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByCategory, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s scanner) (TransactionRow, error) {
	var t TransactionRow
	err := s.Scan(&t.ID, &t.StatementID, &t.Position, &t.PostDate, &t.InvDate, &t.Description, &t.AmountCents, &t.Category)
	return t, err
}

const updateTransactionCategory = `UPDATE transactions
SET category = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?`

func (q *Queries) UpdateTransactionCategory(ctx context.Context, id, category string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTransactionCategory, category, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const categorySums = `SELECT t.statement_id, t.category, SUM(t.amount_cents)
FROM transactions t
JOIN statements s ON s.id = t.statement_id
WHERE (?1 = '' OR s.id = ?1) AND (?2 = 0 OR s.month = ?2) AND (?3 = 0 OR s.year = ?3)
GROUP BY t.statement_id, t.category`

func (q *Queries) CategorySums(ctx context.Context, statementID string, month, year int64) ([]CategorySumRow, error) {
	rows, err := q.db.QueryContext(ctx, categorySums, statementID, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySumRow
	for rows.Next() {
		var c CategorySumRow
		if err := rows.Scan(&c.StatementID, &c.Category, &c.TotalCents); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const upsertRule = `INSERT INTO category_rules (description, category) VALUES (?, ?)
ON CONFLICT(description) DO UPDATE SET
    category = excluded.category,
    hits = category_rules.hits + 1,
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

func (q *Queries) UpsertRule(ctx context.Context, description, category string) error {
	_, err := q.db.ExecContext(ctx, upsertRule, description, category)
	return err
}

const getRule = `SELECT description, category, hits, updated_at FROM category_rules WHERE description = ?`

func (q *Queries) GetRule(ctx context.Context, description string) (CategoryRule, error) {
	var r CategoryRule
	err := q.db.QueryRowContext(ctx, getRule, description).Scan(&r.Description, &r.Category, &r.Hits, &r.UpdatedAt)
	return r, err
}

const listRules = `SELECT description, category, hits, updated_at FROM category_rules ORDER BY description`

func (q *Queries) ListRules(ctx context.Context) ([]CategoryRule, error) {
	rows, err := q.db.QueryContext(ctx, listRules)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRule
	for rows.Next() {
		var r CategoryRule
		if err := rows.Scan(&r.Description, &r.Category, &r.Hits, &r.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
