package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"spendlens/internal/amqp"
	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	ports "spendlens/internal/statements"
)

// StatementService is everything the facade needs from a backend.
type StatementService interface {
	ports.SummaryLister
	ports.SummaryReader
	ports.StatementLister
	ports.StatementReader
	ports.CategoryUpdater
}

// EventPublisher announces category changes to other processes.
type EventPublisher interface {
	PublishCategoryChanged(ctx context.Context, msg *amqp.CategoryChangedMessage) error
}

type AnalyticsOptions struct {
	ExcludeCategory string
	TopCategories   int
	DashboardMonths int
	Publisher       EventPublisher
}

func DefaultAnalyticsOptions() AnalyticsOptions {
	return AnalyticsOptions{
		ExcludeCategory: core.ExcludedCategory,
		TopCategories:   6,
		DashboardMonths: 6,
	}
}

// AnalyticsService is the boundary the presentation layer calls. It
// fetches from the statement service and hands snapshots to the pure
// analytics functions. It neither caches across loads nor retries.
type AnalyticsService struct {
	svc  StatementService
	opts AnalyticsOptions

	mu     sync.RWMutex
	loaded []core.StatementSummary
}

func NewAnalyticsService(svc StatementService, opts AnalyticsOptions) *AnalyticsService {
	if opts.ExcludeCategory == "" {
		opts.ExcludeCategory = core.ExcludedCategory
	}
	if opts.TopCategories <= 0 {
		opts.TopCategories = 6
	}
	if opts.DashboardMonths <= 0 {
		opts.DashboardMonths = 6
	}
	return &AnalyticsService{svc: svc, opts: opts}
}

func (s *AnalyticsService) ExcludeCategory() string { return s.opts.ExcludeCategory }

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentAnalytics)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrDataUnavailable, op, err)
}

// LoadAll fetches every summary, unsorted, and remembers the set for
// SelectForComparison. The last completed load wins.
func (s *AnalyticsService) LoadAll(ctx context.Context) ([]core.StatementSummary, error) {
	summaries, err := s.svc.ListSummaries(ctx, core.SummaryFilter{})
	if err != nil {
		logger(ctx).LogError(ctx, "Failed to load summaries", err, log.OpList, nil)
		return nil, unavailable("load summaries", err)
	}
	s.mu.Lock()
	s.loaded = append([]core.StatementSummary(nil), summaries...)
	s.mu.Unlock()
	return summaries, nil
}

// Loaded returns a copy of the last loaded set.
func (s *AnalyticsService) Loaded() []core.StatementSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.StatementSummary(nil), s.loaded...)
}

// SelectForComparison compares two summaries from the last loaded set.
// It reports false while either id is empty or unknown.
func (s *AnalyticsService) SelectForComparison(firstID, secondID string) (*analytics.ComparisonResult, bool) {
	return selectPair(s.Loaded(), firstID, secondID, s.opts.ExcludeCategory)
}

func selectPair(summaries []core.StatementSummary, firstID, secondID, exclude string) (*analytics.ComparisonResult, bool) {
	if firstID == "" || secondID == "" {
		return nil, false
	}
	first, ok := findSummary(summaries, firstID)
	if !ok {
		return nil, false
	}
	second, ok := findSummary(summaries, secondID)
	if !ok {
		return nil, false
	}
	res := analytics.Compare(first, second, exclude)
	return &res, true
}

func findSummary(summaries []core.StatementSummary, id string) (core.StatementSummary, bool) {
	for _, s := range summaries {
		if s.ID == id {
			return s, true
		}
	}
	return core.StatementSummary{}, false
}

// UpdateCategory delegates the change. Callers re-fetch the owning
// statement afterwards; nothing is recomputed locally.
func (s *AnalyticsService) UpdateCategory(ctx context.Context, transactionID, category string, learn bool) error {
	if err := s.svc.UpdateCategory(ctx, transactionID, category, learn); err != nil {
		logger(ctx).LogError(ctx, "Category update failed", err, log.OpUpdate,
			log.NewFields().WithTransaction(transactionID, category))
		return fmt.Errorf("update category: %w", err)
	}
	s.publishChange(ctx, transactionID, category, learn)
	return nil
}

func (s *AnalyticsService) publishChange(ctx context.Context, transactionID, category string, learn bool) {
	if s.opts.Publisher == nil {
		return
	}
	var description string
	if reader, ok := s.svc.(ports.TransactionReader); ok {
		if tx, err := reader.Transaction(ctx, transactionID); err == nil {
			description = tx.Description
		}
	}
	msg := amqp.NewCategoryChangedMessage(transactionID, category, description, learn)
	if err := s.opts.Publisher.PublishCategoryChanged(ctx, msg); err != nil {
		logger(ctx).LogError(ctx, "Failed to publish category change", err, log.OpUpdate,
			log.NewFields().WithTransaction(transactionID, category))
	}
}

// Upload forwards a statement file when the backend accepts uploads.
func (s *AnalyticsService) Upload(ctx context.Context, filename string, file io.Reader, password string) (core.UploadResult, error) {
	uploader, ok := s.svc.(ports.StatementUploader)
	if !ok {
		return core.UploadResult{}, core.ErrUploadUnsupported
	}
	res, err := uploader.UploadStatement(ctx, filename, file, password)
	if err != nil {
		logger(ctx).WarnContext(ctx, "Statement upload failed",
			log.FieldOperation, log.OpUpload,
			log.FieldFilename, filename,
			"kind", core.UploadFailureKind(err),
			log.FieldError, err)
		return core.UploadResult{}, fmt.Errorf("upload statement: %w", err)
	}
	return res, nil
}

// StatementListItem is one row of the statement list.
type StatementListItem struct {
	ID           string          `json:"id"`
	Filename     string          `json:"filename"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	Label        string          `json:"label"`
	UploadDate   core.Date       `json:"upload_date"`
	Transactions int             `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
}

// ListStatements returns statements newest first.
func (s *AnalyticsService) ListStatements(ctx context.Context) ([]StatementListItem, error) {
	list, err := s.svc.ListStatements(ctx)
	if err != nil {
		logger(ctx).LogError(ctx, "Failed to list statements", err, log.OpList, nil)
		return nil, unavailable("list statements", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Year != list[j].Year {
			return list[i].Year > list[j].Year
		}
		return list[i].Month > list[j].Month
	})
	items := make([]StatementListItem, 0, len(list))
	for _, st := range list {
		items = append(items, StatementListItem{
			ID:           st.ID,
			Filename:     st.Filename,
			Month:        st.Month,
			Year:         st.Year,
			Label:        core.LongMonthLabel(st.Year, st.Month),
			UploadDate:   st.UploadDate,
			Transactions: len(st.Transactions),
			Total:        st.TransactionTotal(),
		})
	}
	return items, nil
}

// StatementView is a statement with its summary and spending breakdown.
type StatementView struct {
	Statement core.Statement           `json:"statement"`
	Summary   core.StatementSummary    `json:"summary"`
	Breakdown []analytics.BreakdownRow `json:"breakdown"`
}

// LoadStatementView fetches a statement and its summary concurrently.
// Either failure fails the whole view.
func (s *AnalyticsService) LoadStatementView(ctx context.Context, id string) (StatementView, error) {
	var view StatementView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.svc.Statement(gctx, id)
		if err != nil {
			return fmt.Errorf("statement %s: %w", id, err)
		}
		view.Statement = st
		return nil
	})
	g.Go(func() error {
		sum, err := s.svc.StatementSummary(gctx, id)
		if err != nil {
			return fmt.Errorf("summary %s: %w", id, err)
		}
		view.Summary = sum
		return nil
	})
	if err := g.Wait(); err != nil {
		logger(ctx).LogError(ctx, "Failed to load statement view", err, log.OpRead,
			log.NewFields().WithStatement(id, 0, 0))
		return StatementView{}, unavailable("load statement view", err)
	}
	view.Breakdown = analytics.Breakdown(view.Summary, s.opts.ExcludeCategory)
	return view, nil
}

// RecentStatement is a dashboard card.
type RecentStatement struct {
	Summary   core.StatementSummary    `json:"summary"`
	Label     string                   `json:"label"`
	Breakdown []analytics.BreakdownRow `json:"breakdown"`
}

// Dashboard is the landing page data.
type Dashboard struct {
	Recent []RecentStatement      `json:"recent"`
	Labels []string               `json:"labels"`
	Series []analytics.Series     `json:"series"`
	Trend  []analytics.TrendPoint `json:"trend"`
}

// Dashboard shows the two latest statements and a stacked monthly view
// of the top categories over the last few statements.
func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	summaries, err := s.LoadAll(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d := Dashboard{Recent: []RecentStatement{}}
	for _, sum := range analytics.MostRecent(summaries, 2) {
		d.Recent = append(d.Recent, RecentStatement{
			Summary:   sum,
			Label:     core.LongMonthLabel(sum.Year, sum.Month),
			Breakdown: analytics.Breakdown(sum, s.opts.ExcludeCategory),
		})
	}
	window := analytics.LastN(summaries, s.opts.DashboardMonths)
	d.Trend = analytics.BuildTrend(window)
	d.Labels = make([]string, len(d.Trend))
	for i, p := range d.Trend {
		d.Labels[i] = p.Label
	}
	top := analytics.TopCategories(window, s.opts.TopCategories, s.opts.ExcludeCategory)
	d.Series = analytics.CategorySeries(window, top)
	return d, nil
}

// AnalyticsView loads every summary and applies a year filter and
// comparison picks through a fresh controller.
func (s *AnalyticsService) AnalyticsView(ctx context.Context, year int, firstID, secondID string) (AnalyticsView, error) {
	summaries, err := s.LoadAll(ctx)
	if err != nil {
		return AnalyticsView{}, err
	}
	c := NewAnalyticsController(s.opts.ExcludeCategory, s.opts.TopCategories)
	c.Load(summaries)
	c.SetYearFilter(year)
	c.Pick(FirstPick, firstID)
	c.Pick(SecondPick, secondID)
	return c.View(), nil
}
