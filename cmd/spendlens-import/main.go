// Command spendlens-import loads statement JSON exports into the SQLite
// store and prints what was imported.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"

	"spendlens/internal/analytics"
	"spendlens/internal/cli"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/services"
	"spendlens/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.BootstrapLogger(log.ComponentImport)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, log.ComponentImport)

	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database to import into")
	exclude := flag.String("exclude", cfg.ExcludedCategory, "Category left out of the top-category column")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] statement.json...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	repo := cli.InitSQLite(logger, *dbPath)
	defer repo.Close()
	repo.SetCategorizer(services.NewCategorizer(repo))

	ctx := context.Background()
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Statement", "Period", "Transactions", "Total", "Top category", "Status"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})

	failed := 0
	for _, path := range flag.Args() {
		row, err := importFile(ctx, repo, path, *exclude)
		if err != nil {
			failed++
			logger.Error("Import failed", log.FieldFilename, path, log.FieldError, err)
			row = []string{filepath.Base(path), "", "", "", "", "", "failed: " + core.UploadFailureKind(err)}
		}
		table.Append(row)
	}
	table.Render()

	if failed > 0 {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, repo *storage.SQLiteRepository, path, exclude string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := repo.UploadStatement(ctx, filepath.Base(path), f, "")
	if err != nil {
		return nil, err
	}
	st, err := repo.Statement(ctx, res.ID)
	if err != nil {
		return nil, err
	}
	sum, err := repo.StatementSummary(ctx, res.ID)
	if err != nil {
		return nil, err
	}

	top := "-"
	var best *analytics.BreakdownRow
	rows := analytics.Breakdown(sum, exclude)
	for i := range rows {
		if best == nil || rows[i].Amount.GreaterThan(best.Amount) {
			best = &rows[i]
		}
	}
	if best != nil {
		top = fmt.Sprintf("%s (%d%%)", best.Category, best.Percentage)
	}
	return []string{
		filepath.Base(path),
		res.ID,
		core.MonthLabel(res.Year, res.Month),
		fmt.Sprint(len(st.Transactions)),
		core.FormatAmount(sum.Total),
		top,
		"imported",
	}, nil
}
