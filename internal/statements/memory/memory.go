package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"spendlens/internal/core"
	ports "spendlens/internal/statements"
)

var (
	_ ports.SummaryLister     = (*Store)(nil)
	_ ports.SummaryReader     = (*Store)(nil)
	_ ports.StatementLister   = (*Store)(nil)
	_ ports.StatementReader   = (*Store)(nil)
	_ ports.CategoryUpdater   = (*Store)(nil)
	_ ports.StatementUploader = (*Store)(nil)
	_ ports.TransactionReader = (*Store)(nil)
)

// Store keeps statements in insertion order and derives summaries on read.
type Store struct {
	mu         sync.RWMutex
	statements []core.Statement
	categorize ports.Categorizer
}

type Option func(*Store)

// WithCategorizer sets how uploaded transactions without a category are labelled.
func WithCategorizer(fn ports.Categorizer) Option {
	return func(s *Store) {
		s.categorize = fn
	}
}

func New(seed []core.Statement, opts ...Option) *Store {
	s := &Store{}
	for _, st := range seed {
		s.statements = append(s.statements, cloneStatement(st))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromFile seeds the store from a JSON array of statements. A missing
// file yields an empty store.
func NewFromFile(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return New(nil, opts...), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(nil, opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.Statement
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for _, st := range seed {
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("seed statement %s: %w", st.ID, err)
		}
	}
	return New(seed, opts...), nil
}

func (s *Store) ListSummaries(_ context.Context, filter core.SummaryFilter) ([]core.StatementSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.StatementSummary{}
	for _, st := range s.statements {
		if filter.Matches(st.Month, st.Year) {
			out = append(out, core.Summarize(st))
		}
	}
	return out, nil
}

func (s *Store) StatementSummary(_ context.Context, id string) (core.StatementSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.StatementSummary{}, fmt.Errorf("statement %s: %w", id, core.ErrNotFound)
	}
	return core.Summarize(s.statements[i]), nil
}

func (s *Store) ListStatements(_ context.Context) ([]core.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Statement, 0, len(s.statements))
	for _, st := range s.statements {
		out = append(out, cloneStatement(st))
	}
	return out, nil
}

func (s *Store) Statement(_ context.Context, id string) (core.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Statement{}, fmt.Errorf("statement %s: %w", id, core.ErrNotFound)
	}
	return cloneStatement(s.statements[i]), nil
}

func (s *Store) Transaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.statements {
		for _, tx := range st.Transactions {
			if tx.ID == id {
				return tx, nil
			}
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

// UpdateCategory relabels a transaction. The learn flag has no effect here.
func (s *Store) UpdateCategory(_ context.Context, transactionID, category string, _ bool) error {
	if !core.IsValidCategory(category) {
		return core.Reject(core.ReasonInvalidCategory, category)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.statements {
		for j := range s.statements[i].Transactions {
			if s.statements[i].Transactions[j].ID == transactionID {
				s.statements[i].Transactions[j].Category = category
				return nil
			}
		}
	}
	return fmt.Errorf("transaction %s: %w", transactionID, core.ErrNotFound)
}

// UploadStatement accepts JSON statement exports; passwords are ignored.
func (s *Store) UploadStatement(ctx context.Context, filename string, file io.Reader, _ string) (core.UploadResult, error) {
	st, err := ports.DecodeStatement(ctx, file, filename, s.categorize)
	if err != nil {
		return core.UploadResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(st.ID) >= 0 {
		return core.UploadResult{}, core.Reject(core.ReasonInvalidFormat, "duplicate statement id "+st.ID)
	}
	s.statements = append(s.statements, st)
	return core.UploadResult{ID: st.ID, Filename: st.Filename, Month: st.Month, Year: st.Year}, nil
}

func (s *Store) indexOf(id string) int {
	for i, st := range s.statements {
		if st.ID == id {
			return i
		}
	}
	return -1
}

func cloneStatement(st core.Statement) core.Statement {
	st.Transactions = append([]core.Transaction(nil), st.Transactions...)
	return st
}
