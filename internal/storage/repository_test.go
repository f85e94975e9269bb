package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"spendlens/internal/core"
	ports "spendlens/internal/statements"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "spendlens.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func statement(id string, month, year int, txs ...core.Transaction) core.Statement {
	return core.Statement{
		ID: id, Filename: id + ".pdf", Month: month, Year: year,
		UploadDate: core.NewDate(year, month, 28), Transactions: txs,
	}
}

func tx(id, desc, amount, category string) core.Transaction {
	d := core.NewDate(2024, 1, 10)
	return core.Transaction{
		ID: id, PostDate: d, InvDate: d, Description: desc,
		Amount: decimal.RequireFromString(amount), Category: category,
	}
}

func seed(t *testing.T, repo *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()
	for _, st := range []core.Statement{
		statement("jan", 1, 2024,
			tx("t1", "KEELLS", "100", core.CategoryGrocery),
			tx("t2", "PAYMENT CR", "-500", core.CategoryPayment),
			tx("t3", "CARGILLS", "20.55", core.CategoryGrocery)),
		statement("feb", 2, 2024,
			tx("t4", "SHELL", "50", core.CategoryFuel),
			tx("t5", "ODEL", "150", core.CategoryTextile)),
		statement("empty", 12, 2023),
	} {
		if err := repo.ImportStatement(ctx, st); err != nil {
			t.Fatalf("import %s: %v", st.ID, err)
		}
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if v1 != 2 || v2 != 2 {
		t.Fatalf("versions = %d, %d", v1, v2)
	}
}

func TestListSummaries(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo)
	ctx := context.Background()

	all, err := repo.ListSummaries(ctx, core.SummaryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "jan" || all[2].ID != "empty" {
		t.Fatalf("summaries = %+v", all)
	}
	jan := all[0]
	if names := jan.Summary.Names(); len(names) != 2 || names[0] != core.CategoryGrocery || names[1] != core.CategoryPayment {
		t.Errorf("jan keys = %v", names)
	}
	if v, _ := jan.Summary.Get(core.CategoryGrocery); !v.Equal(decimal.RequireFromString("120.55")) {
		t.Errorf("jan grocery = %s", v)
	}
	if !jan.Total.Equal(decimal.RequireFromString("-379.45")) {
		t.Errorf("jan total = %s", jan.Total)
	}
	if len(all[2].Summary) != 0 || !all[2].Total.IsZero() {
		t.Errorf("empty statement summary = %+v", all[2])
	}

	feb, err := repo.ListSummaries(ctx, core.SummaryFilter{Month: 2, Year: 2024})
	if err != nil || len(feb) != 1 || feb[0].ID != "feb" {
		t.Fatalf("feb = %+v, %v", feb, err)
	}
}

func TestStatementRoundTrip(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo)
	ctx := context.Background()

	st, err := repo.Statement(ctx, "jan")
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(st.Transactions) != 3 || st.Transactions[2].ID != "t3" {
		t.Fatalf("transactions = %+v", st.Transactions)
	}
	if !st.Transactions[2].Amount.Equal(decimal.RequireFromString("20.55")) {
		t.Errorf("amount = %s", st.Transactions[2].Amount)
	}
	if st.UploadDate.Day() != 28 {
		t.Errorf("upload date = %v", st.UploadDate)
	}
	if _, err := repo.Statement(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	list, err := repo.ListStatements(ctx)
	if err != nil || len(list) != 3 {
		t.Fatalf("list = %d, %v", len(list), err)
	}
}

func TestImportDuplicate(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo)
	err := repo.ImportStatement(context.Background(), statement("jan", 1, 2024))
	if !errors.Is(err, ErrDuplicateStatement) {
		t.Fatalf("err = %v", err)
	}
}

func TestImportRejectsSubCentAmount(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	err := repo.ImportStatement(ctx, statement("apr", 4, 2024, tx("a1", "UBER", "12.345", core.CategoryTransportation)))
	if !errors.Is(err, core.ErrSubCentAmount) {
		t.Fatalf("err = %v, want sub-cent rejection", err)
	}
	if _, err := repo.Statement(ctx, "apr"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("rejected statement was stored: %v", err)
	}
}

func TestUpdateCategory(t *testing.T) {
	repo := newRepo(t)
	seed(t, repo)
	ctx := context.Background()

	if err := repo.UpdateCategory(ctx, "t3", core.CategoryDining, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	sum, err := repo.StatementSummary(ctx, "jan")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := sum.Summary.Get(core.CategoryDining); !v.Equal(decimal.RequireFromString("20.55")) {
		t.Errorf("dining = %s", v)
	}
	if err := repo.UpdateCategory(ctx, "t3", "Snacks", true); core.RejectionReason(err) != core.ReasonInvalidCategory {
		t.Errorf("err = %v", err)
	}
	if err := repo.UpdateCategory(ctx, "missing", core.CategoryFuel, true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	got, err := repo.Transaction(ctx, "t3")
	if err != nil || got.Category != core.CategoryDining {
		t.Errorf("tx = %+v, %v", got, err)
	}
}

func TestUploadStatement(t *testing.T) {
	repo := newRepo(t)
	repo.SetCategorizer(ports.CategorizerFunc(func(string) string { return core.CategoryTravel }))
	ctx := context.Background()
	body := `{"id":"mar","month":3,"year":2024,"transactions":[{"post_date":"2024-03-02","inv_date":"2024-03-01","description":"AIRBNB","amount":300}]}`

	res, err := repo.UploadStatement(ctx, "mar.json", strings.NewReader(body), "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.ID != "mar" || res.Filename != "mar.json" {
		t.Fatalf("res = %+v", res)
	}
	sum, _ := repo.StatementSummary(ctx, "mar")
	if !sum.Summary.Has(core.CategoryTravel) {
		t.Fatalf("summary = %v", sum.Summary.Names())
	}
	_, err = repo.UploadStatement(ctx, "mar.json", strings.NewReader(body), "")
	if core.UploadFailureKind(err) != core.UploadInvalidFormat {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestRules(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	if err := repo.SaveRule(ctx, "  Uber   Trip ", core.CategoryTransportation); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.SaveRule(ctx, "UBER TRIP", core.CategoryTravel); err != nil {
		t.Fatalf("save again: %v", err)
	}
	cat, ok, err := repo.LookupRule(ctx, "uber trip")
	if err != nil || !ok || cat != core.CategoryTravel {
		t.Fatalf("lookup = %q %v %v", cat, ok, err)
	}
	if _, ok, _ := repo.LookupRule(ctx, "unknown"); ok {
		t.Fatal("unexpected rule")
	}
	rules, err := repo.ListRules(ctx)
	if err != nil || len(rules) != 1 || rules[0].Hits != 2 {
		t.Fatalf("rules = %+v, %v", rules, err)
	}
	if err := repo.SaveRule(ctx, "   ", core.CategoryFuel); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("err = %v", err)
	}
}

func TestUncategorizedTransactions(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	st := statement("apr", 4, 2024,
		tx("a1", "MYSTERY SHOP", "10", core.CategoryOther),
		tx("a2", "SHELL", "20", core.CategoryFuel),
		tx("a3", "ODD THING", "30", core.CategoryOther))
	if err := repo.ImportStatement(ctx, st); err != nil {
		t.Fatal(err)
	}
	got, err := repo.UncategorizedTransactions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a3" {
		t.Fatalf("got %+v", got)
	}
	got, _ = repo.UncategorizedTransactions(ctx, 1)
	if len(got) != 1 {
		t.Fatalf("limit ignored: %d", len(got))
	}
}

func TestPingAfterClose(t *testing.T) {
	repo := newRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() = %v", err)
	}
	_ = repo.Close()
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatal("Ping() succeeded on a closed database")
	}
}
