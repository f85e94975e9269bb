// Package google serves statement summaries from a Google Sheet. The
// sheet is read-only: one row per statement and category.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlens/internal/core"
	ports "spendlens/internal/statements"
)

// Ensure interface conformance
var (
	_ ports.SummaryLister   = (*Client)(nil)
	_ ports.SummaryReader   = (*Client)(nil)
	_ ports.StatementLister = (*Client)(nil)
	_ ports.StatementReader = (*Client)(nil)
	_ ports.CategoryUpdater = (*Client)(nil)
)

// ValuesGetter fetches a range of cell values.
type ValuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
}

type Client struct {
	values        ValuesGetter
	spreadsheetID string
	sheetName     string
}

// Options for NewClient. Credentials come from JSON or File; when both
// are empty GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Options struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

func New(values ValuesGetter, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Summaries"
	}
	return &Client{values: values, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// NewClient creates a Sheets-backed client using Service Account credentials.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(serviceGetter{svc: svc}, opts.SpreadsheetID, opts.SheetName), nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(opts.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

type serviceGetter struct {
	svc *gsheet.Service
}

func (g serviceGetter) Get(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (c *Client) readAll(ctx context.Context) ([]core.StatementSummary, error) {
	if c.values == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", c.sheetName)
	rows, err := c.values.Get(ctx, c.spreadsheetID, rng)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseSummaries(rows)
}

func (c *Client) ListSummaries(ctx context.Context, filter core.SummaryFilter) ([]core.StatementSummary, error) {
	all, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.StatementSummary, 0, len(all))
	for _, s := range all {
		if filter.Matches(s.Month, s.Year) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Client) StatementSummary(ctx context.Context, id string) (core.StatementSummary, error) {
	all, err := c.readAll(ctx)
	if err != nil {
		return core.StatementSummary{}, err
	}
	for _, s := range all {
		if s.ID == id {
			return s, nil
		}
	}
	return core.StatementSummary{}, fmt.Errorf("statement %s: %w", id, core.ErrNotFound)
}

// ListStatements returns one transaction-less statement per summary.
func (c *Client) ListStatements(ctx context.Context) ([]core.Statement, error) {
	all, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Statement, 0, len(all))
	for _, s := range all {
		out = append(out, c.statementFor(s))
	}
	return out, nil
}

func (c *Client) Statement(ctx context.Context, id string) (core.Statement, error) {
	s, err := c.StatementSummary(ctx, id)
	if err != nil {
		return core.Statement{}, err
	}
	return c.statementFor(s), nil
}

func (c *Client) UpdateCategory(context.Context, string, string, bool) error {
	return core.ErrReadOnlyBackend
}

func (c *Client) statementFor(s core.StatementSummary) core.Statement {
	return core.Statement{
		ID:           s.ID,
		Filename:     c.sheetName,
		Month:        s.Month,
		Year:         s.Year,
		Transactions: []core.Transaction{},
	}
}
