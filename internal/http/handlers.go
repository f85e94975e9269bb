package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"spendlens/internal/analytics"
	"spendlens/internal/core"
	"spendlens/internal/log"
	"spendlens/internal/report"
	"spendlens/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	rl := s.limiter.GetMetrics()
	tr := s.tracer.GetMetrics()
	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
		"stats": map[string]int64{
			"requests":            tr.TotalRequests,
			"failed_requests":     tr.FailedRequests,
			"rate_limited":        rl.TotalHits,
			"rate_limit_clients":  rl.ClientCount,
			"suspicious_requests": s.detector.SuspiciousRequests(),
		},
	}).Write(w)
}

type categoryInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	names := core.Categories()
	out := make([]categoryInfo, len(names))
	for i, n := range names {
		out[i] = categoryInfo{Name: n, Color: s.palette.Color(n)}
	}
	NewResponse().JSON(map[string]any{"categories": out}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	names := make([]string, 0, len(d.Series))
	for _, series := range d.Series {
		names = append(names, series.Category)
	}
	for _, rec := range d.Recent {
		names = append(names, breakdownNames(rec.Breakdown)...)
	}
	NewResponse().JSON(struct {
		services.Dashboard
		Colors map[string]string `json:"colors"`
	}{d, s.palette.ColorsFor(names)}).Write(w)
}

func (s *Server) analyticsView(r *http.Request) (services.AnalyticsView, error) {
	year, err := ParseYear(r.URL.Query())
	if err != nil {
		return services.AnalyticsView{}, core.Reject(core.ReasonInvalidFormat, err.Error())
	}
	picks := ParseComparisonParams(r.URL.Query())
	return s.svc.AnalyticsView(r.Context(), year, picks.First, picks.Second)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	view, err := s.analyticsView(r)
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	names := view.CategoryTotals.Names()
	if view.Comparison != nil {
		names = append(names, view.Comparison.Categories()...)
	}
	NewResponse().JSON(struct {
		services.AnalyticsView
		Colors map[string]string `json:"colors"`
	}{view, s.palette.ColorsFor(names)}).Write(w)
}

// handleCompare answers {"ready": false} until both ids resolve.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	picks := ParseComparisonParams(r.URL.Query())
	if _, err := s.svc.LoadAll(r.Context()); err != nil {
		writeError(w, r, log.OpCompare, err)
		return
	}
	res, ok := s.svc.SelectForComparison(picks.First, picks.Second)
	if !ok {
		NewResponse().JSON(map[string]bool{"ready": false}).Write(w)
		return
	}
	NewResponse().JSON(struct {
		Ready      bool                        `json:"ready"`
		Comparison *analytics.ComparisonResult `json:"comparison"`
		Colors     map[string]string           `json:"colors"`
	}{true, res, s.palette.ColorsFor(res.Categories())}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	view, err := s.analyticsView(r)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	buf, err := report.AnalyticsWorkbook(view)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	filename := "spendlens-analytics.xlsx"
	if view.Year != 0 {
		filename = fmt.Sprintf("spendlens-analytics-%d.xlsx", view.Year)
	}
	NewResponse().
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename)).
		Bytes(xlsxContentType, buf.Bytes()).
		Write(w)
}

func (s *Server) handleListStatements(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.ListStatements(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(map[string]any{"statements": items}).Write(w)
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	query, err := ParseTransactionQuery(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	view, err := s.svc.LoadStatementView(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	total := view.Statement.TransactionTotal()
	view.Statement.Transactions = services.QueryTransactions(view.Statement.Transactions, query)

	names := breakdownNames(view.Breakdown)
	for _, tx := range view.Statement.Transactions {
		names = append(names, tx.Category)
	}
	NewResponse().JSON(struct {
		services.StatementView
		TransactionTotal string            `json:"transaction_total"`
		Colors           map[string]string `json:"colors"`
	}{view, core.FormatAmount(total), s.palette.ColorsFor(names)}).Write(w)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	category := parser.Get("category")
	if category == "" {
		BadRequestError("category is required").Write(w)
		return
	}
	id := r.PathValue("id")
	if err := s.svc.UpdateCategory(r.Context(), id, category, parser.GetBool("learn")); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "file too large").Write(w)
			return
		}
		BadRequestError("expected multipart form with a file field").Write(w)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("file is required").Write(w)
		return
	}
	defer file.Close()

	res, err := s.svc.Upload(r.Context(), header.Filename, file, r.FormValue("password"))
	if err != nil {
		resp := errorResponse(err)
		if statusFor(err) != http.StatusNotImplemented {
			resp.payload = ErrorBody{Error: uploadMessage(err), Kind: core.UploadFailureKind(err)}
		}
		writeErrorLog(r, log.OpUpload, err)
		resp.Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(res).Write(w)
}

func uploadMessage(err error) string {
	switch core.UploadFailureKind(err) {
	case core.UploadWrongPassword:
		return "wrong statement password"
	case core.UploadInvalidFormat:
		return "unrecognised statement format"
	default:
		return "upload failed"
	}
}

func breakdownNames(rows []analytics.BreakdownRow) []string {
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Category
	}
	sort.Strings(names)
	return names
}
