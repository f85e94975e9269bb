package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"spendlens/internal/core"
	ports "spendlens/internal/statements"
)

// Source is the statement service being cached.
type Source interface {
	ports.SummaryLister
	ports.SummaryReader
	ports.StatementLister
	ports.StatementReader
	ports.CategoryUpdater
}

// Statements caches per-statement reads. Listings always go to the
// source so a reload sees new uploads; a category update purges
// everything since the owning statement is unknown.
type Statements struct {
	Source
	statements *LRUCache[core.Statement]
	summaries  *LRUCache[core.StatementSummary]
}

func NewStatements(src Source, size int, ttl time.Duration) *Statements {
	return &Statements{
		Source:     src,
		statements: NewLRUCache[core.Statement](size, ttl),
		summaries:  NewLRUCache[core.StatementSummary](size, ttl),
	}
}

// Register hands both caches to m for periodic cleanup.
func (s *Statements) Register(m *Manager) {
	m.Register(s.statements)
	m.Register(s.summaries)
}

func (s *Statements) Statement(ctx context.Context, id string) (core.Statement, error) {
	if st, ok := s.statements.Get(id); ok {
		return cloneStatement(st), nil
	}
	st, err := s.Source.Statement(ctx, id)
	if err != nil {
		return core.Statement{}, err
	}
	s.statements.Set(id, cloneStatement(st))
	return st, nil
}

func (s *Statements) StatementSummary(ctx context.Context, id string) (core.StatementSummary, error) {
	if sum, ok := s.summaries.Get(id); ok {
		sum.Summary = sum.Summary.Clone()
		return sum, nil
	}
	sum, err := s.Source.StatementSummary(ctx, id)
	if err != nil {
		return core.StatementSummary{}, err
	}
	cached := sum
	cached.Summary = sum.Summary.Clone()
	s.summaries.Set(id, cached)
	return sum, nil
}

func (s *Statements) UpdateCategory(ctx context.Context, transactionID, category string, learn bool) error {
	err := s.Source.UpdateCategory(ctx, transactionID, category, learn)
	if err == nil {
		s.statements.Purge()
		s.summaries.Purge()
	}
	return err
}

// UploadStatement forwards to the source when it accepts uploads.
func (s *Statements) UploadStatement(ctx context.Context, filename string, file io.Reader, password string) (core.UploadResult, error) {
	up, ok := s.Source.(ports.StatementUploader)
	if !ok {
		return core.UploadResult{}, core.ErrUploadUnsupported
	}
	return up.UploadStatement(ctx, filename, file, password)
}

// Transaction forwards to the source when it can look transactions up.
func (s *Statements) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	tr, ok := s.Source.(ports.TransactionReader)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tr.Transaction(ctx, id)
}

func cloneStatement(st core.Statement) core.Statement {
	st.Transactions = append([]core.Transaction(nil), st.Transactions...)
	return st
}
