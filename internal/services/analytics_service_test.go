package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"spendlens/internal/amqp"
	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/statements/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func txn(id, desc, amount, category string) core.Transaction {
	return core.Transaction{
		ID: id, PostDate: day(2024, 1, 5), InvDate: day(2024, 1, 4),
		Description: desc, Amount: dec(amount), Category: category,
	}
}

func fixtureStatements() []core.Statement {
	return []core.Statement{
		{ID: "jan", Filename: "jan.pdf", Month: 1, Year: 2024, UploadDate: day(2024, 2, 1), Transactions: []core.Transaction{
			txn("j1", "KEELLS", "100", core.CategoryGrocery),
			txn("j2", "PAYMENT CR", "-500", core.CategoryPayment),
		}},
		{ID: "feb", Filename: "feb.pdf", Month: 2, Year: 2024, UploadDate: day(2024, 3, 1), Transactions: []core.Transaction{
			txn("f1", "CARGILLS", "150", core.CategoryGrocery),
			txn("f2", "SHELL", "50", core.CategoryFuel),
		}},
		{ID: "dec", Filename: "dec.pdf", Month: 12, Year: 2023, UploadDate: day(2024, 1, 2), Transactions: []core.Transaction{
			txn("d1", "PIZZA HUT", "80", core.CategoryDining),
		}},
	}
}

type failingService struct {
	*memory.Store
	listErr      error
	statementErr error
}

func (f *failingService) ListSummaries(ctx context.Context, filter core.SummaryFilter) ([]core.StatementSummary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListSummaries(ctx, filter)
}

func (f *failingService) Statement(ctx context.Context, id string) (core.Statement, error) {
	if f.statementErr != nil {
		return core.Statement{}, f.statementErr
	}
	return f.Store.Statement(ctx, id)
}

// readOnly hides the memory store's upload capability.
type readOnly struct {
	StatementService
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.CategoryChangedMessage
	err  error
}

func (p *recordingPublisher) PublishCategoryChanged(_ context.Context, msg *amqp.CategoryChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newService(t *testing.T, opts AnalyticsOptions) (*AnalyticsService, *memory.Store) {
	t.Helper()
	store := memory.New(fixtureStatements())
	return NewAnalyticsService(store, opts), store
}

func TestLoadAll(t *testing.T) {
	svc, _ := newService(t, DefaultAnalyticsOptions())
	got, err := svc.LoadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || len(svc.Loaded()) != 3 {
		t.Fatalf("loaded %d / %d", len(got), len(svc.Loaded()))
	}
}

func TestLoadAllFailure(t *testing.T) {
	upstream := fmt.Errorf("summaries: %w", core.ErrServiceFailure)
	svc := NewAnalyticsService(&failingService{Store: memory.New(nil), listErr: upstream}, AnalyticsOptions{})

	_, err := svc.LoadAll(context.Background())
	if !errors.Is(err, core.ErrDataUnavailable) {
		t.Fatalf("err = %v, want data unavailable", err)
	}
	if !errors.Is(err, core.ErrServiceFailure) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestSelectForComparison(t *testing.T) {
	svc, _ := newService(t, DefaultAnalyticsOptions())

	if _, ok := svc.SelectForComparison("jan", "feb"); ok {
		t.Fatal("comparison before any load")
	}
	if _, err := svc.LoadAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name          string
		first, second string
		wantOK        bool
	}{
		{"both present", "jan", "feb", true},
		{"empty first", "", "feb", false},
		{"empty second", "jan", "", false},
		{"unknown id", "jan", "zzz", false},
		{"same statement", "feb", "feb", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := svc.SelectForComparison(tt.first, tt.second)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}

	res, _ := svc.SelectForComparison("jan", "feb")
	// Totals are sourced, so jan's payment credit stays in its -400 total.
	if !res.Difference.Equal(dec("600")) || !res.Percentage.Equal(dec("-150")) {
		t.Errorf("difference %s percentage %s", res.Difference, res.Percentage)
	}
	if res.Classification != analytics.Increase {
		t.Errorf("classification = %s", res.Classification)
	}
}

func TestUpdateCategory(t *testing.T) {
	pub := &recordingPublisher{}
	opts := DefaultAnalyticsOptions()
	opts.Publisher = pub
	svc, store := newService(t, opts)
	ctx := context.Background()

	if err := svc.UpdateCategory(ctx, "f2", core.CategoryTransportation, true); err != nil {
		t.Fatal(err)
	}
	tx, _ := store.Transaction(ctx, "f2")
	if tx.Category != core.CategoryTransportation {
		t.Errorf("category = %s", tx.Category)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.TransactionID != "f2" || msg.Description != "SHELL" || !msg.Learn {
		t.Errorf("msg = %+v", msg)
	}

	err := svc.UpdateCategory(ctx, "f2", "Snacks", false)
	if core.RejectionReason(err) != core.ReasonInvalidCategory {
		t.Errorf("err = %v", err)
	}
	if !errors.Is(svc.UpdateCategory(ctx, "missing", core.CategoryFuel, false), core.ErrNotFound) {
		t.Error("expected not found")
	}
	if len(pub.msgs) != 1 {
		t.Errorf("failed updates published events: %d", len(pub.msgs))
	}
}

func TestUpdateCategoryPublishFailureIsIgnored(t *testing.T) {
	opts := DefaultAnalyticsOptions()
	opts.Publisher = &recordingPublisher{err: errors.New("broker down")}
	svc, _ := newService(t, opts)
	if err := svc.UpdateCategory(context.Background(), "j1", core.CategoryDining, false); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateCategoryFailureLogsTransaction(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})
	ctx := log.NewContext(context.Background(), logger)
	svc, _ := newService(t, DefaultAnalyticsOptions())

	if err := svc.UpdateCategory(ctx, "missing", core.CategoryFuel, false); err == nil {
		t.Fatal("expected error")
	}

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log = %q: %v", buf.String(), err)
	}
	want := map[string]any{
		log.FieldOperation:     log.OpUpdate,
		log.FieldTransactionID: "missing",
		log.FieldCategory:      core.CategoryFuel,
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
	if rec[log.FieldError] == nil {
		t.Error("error field missing")
	}
}

func TestUpload(t *testing.T) {
	svc, _ := newService(t, DefaultAnalyticsOptions())
	ctx := context.Background()
	body := `{"month":3,"year":2024,"transactions":[{"post_date":"2024-03-02","inv_date":"2024-03-01","description":"ODEL","amount":75,"category":"Textile"}]}`

	res, err := svc.Upload(ctx, "mar.json", strings.NewReader(body), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Month != 3 || res.Year != 2024 || res.Filename != "mar.json" {
		t.Errorf("res = %+v", res)
	}

	_, err = svc.Upload(ctx, "bad.json", strings.NewReader("%PDF-1.4"), "")
	if core.UploadFailureKind(err) != core.UploadInvalidFormat {
		t.Errorf("err = %v", err)
	}

	ro := NewAnalyticsService(readOnly{memory.New(nil)}, AnalyticsOptions{})
	if _, err := ro.Upload(ctx, "x.json", strings.NewReader("{}"), ""); !errors.Is(err, core.ErrUploadUnsupported) {
		t.Errorf("err = %v", err)
	}
}

func TestListStatements(t *testing.T) {
	svc, _ := newService(t, DefaultAnalyticsOptions())
	items, err := svc.ListStatements(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"feb", "jan", "dec"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("order = %v", items)
		}
	}
	if items[0].Transactions != 2 || !items[0].Total.Equal(dec("200")) {
		t.Errorf("feb item = %+v", items[0])
	}
}

func TestLoadStatementView(t *testing.T) {
	svc, _ := newService(t, DefaultAnalyticsOptions())
	ctx := context.Background()

	view, err := svc.LoadStatementView(ctx, "jan")
	if err != nil {
		t.Fatal(err)
	}
	if view.Statement.ID != "jan" || view.Summary.ID != "jan" {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Breakdown) != 1 || view.Breakdown[0].Category != core.CategoryGrocery {
		t.Errorf("breakdown = %+v", view.Breakdown)
	}

	_, err = svc.LoadStatementView(ctx, "missing")
	if !errors.Is(err, core.ErrDataUnavailable) || !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v", err)
	}

	broken := NewAnalyticsService(&failingService{
		Store:        memory.New(fixtureStatements()),
		statementErr: core.ErrServiceFailure,
	}, AnalyticsOptions{})
	if _, err := broken.LoadStatementView(ctx, "jan"); !errors.Is(err, core.ErrServiceFailure) {
		t.Errorf("err = %v", err)
	}
}

func TestDashboard(t *testing.T) {
	opts := DefaultAnalyticsOptions()
	opts.DashboardMonths = 2
	opts.TopCategories = 1
	svc, _ := newService(t, opts)

	d, err := svc.Dashboard(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Recent) != 2 || d.Recent[0].Summary.ID != "feb" || d.Recent[1].Summary.ID != "jan" {
		t.Fatalf("recent = %+v", d.Recent)
	}
	if got := strings.Join(d.Labels, ","); got != "Jan 2024,Feb 2024" {
		t.Errorf("labels = %s", got)
	}
	if len(d.Series) != 1 || d.Series[0].Category != core.CategoryGrocery {
		t.Fatalf("series = %+v", d.Series)
	}
	if !d.Series[0].Values[0].Equal(dec("100")) || !d.Series[0].Values[1].Equal(dec("150")) {
		t.Errorf("values = %v", d.Series[0].Values)
	}
}

func TestAnalyticsView(t *testing.T) {
	svc, _ := newService(t, DefaultAnalyticsOptions())
	v, err := svc.AnalyticsView(context.Background(), 2024, "jan", "feb")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Summaries) != 2 || v.Comparison == nil {
		t.Fatalf("view = %+v", v)
	}
	if len(v.Years) != 2 || v.Years[0] != 2023 {
		t.Errorf("years = %v", v.Years)
	}
}
