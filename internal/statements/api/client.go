// Package api is a client for the remote Statement Service HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"spendlens/internal/core"
	ports "spendlens/internal/statements"
)

const (
	DefaultTimeout   = 15 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Ensure interface conformance
var (
	_ ports.SummaryLister     = (*Client)(nil)
	_ ports.SummaryReader     = (*Client)(nil)
	_ ports.StatementLister   = (*Client)(nil)
	_ ports.StatementReader   = (*Client)(nil)
	_ ports.CategoryUpdater   = (*Client)(nil)
	_ ports.StatementUploader = (*Client)(nil)
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid statement service url %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx response. It unwraps to the matching core error.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("statement service error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// classifier maps a status code to the core error it represents for
// one kind of request.
type classifier func(status int, detail string) error

func fetchKind(status int, _ string) error {
	if status == http.StatusNotFound {
		return core.ErrNotFound
	}
	return core.ErrServiceFailure
}

func updateKind(status int, detail string) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.Reject(core.ReasonInvalidCategory, detail)
	case http.StatusNotFound:
		return core.ErrNotFound
	default:
		return core.ErrServiceFailure
	}
}

func uploadKind(status int, detail string) error {
	switch status {
	case http.StatusBadRequest:
		return core.Reject(core.ReasonInvalidFormat, detail)
	case http.StatusUnauthorized:
		return core.Reject(core.ReasonWrongPassword, detail)
	default:
		return core.ErrServiceFailure
	}
}

func (c *Client) do(ctx context.Context, req *http.Request, classify classifier, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Statement service request",
		"method", req.Method,
		"path", req.URL.Path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		detail := errorDetail(body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    detail,
			Endpoint:   req.URL.Path,
			kind:       classify(resp.StatusCode, detail),
		}
	}
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// errorDetail extracts {"detail": "..."} bodies, falling back to the raw text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			return s
		}
		return string(payload.Detail)
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(ctx, req, fetchKind, result)
}

// ListSummaries calls GET /analytics/summary with optional month/year.
func (c *Client) ListSummaries(ctx context.Context, filter core.SummaryFilter) ([]core.StatementSummary, error) {
	q := url.Values{}
	if filter.Month != 0 {
		q.Set("month", strconv.Itoa(filter.Month))
	}
	if filter.Year != 0 {
		q.Set("year", strconv.Itoa(filter.Year))
	}
	var resp struct {
		Summaries []core.StatementSummary `json:"summaries"`
	}
	if err := c.get(ctx, "/analytics/summary", q, &resp); err != nil {
		return nil, err
	}
	if resp.Summaries == nil {
		resp.Summaries = []core.StatementSummary{}
	}
	return resp.Summaries, nil
}

func (c *Client) StatementSummary(ctx context.Context, id string) (core.StatementSummary, error) {
	var s core.StatementSummary
	if err := c.get(ctx, "/analytics/summary", url.Values{"statement_id": {id}}, &s); err != nil {
		return core.StatementSummary{}, err
	}
	return s, nil
}

func (c *Client) ListStatements(ctx context.Context) ([]core.Statement, error) {
	var resp struct {
		Statements []core.Statement `json:"statements"`
	}
	if err := c.get(ctx, "/statements", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Statements == nil {
		resp.Statements = []core.Statement{}
	}
	return resp.Statements, nil
}

func (c *Client) Statement(ctx context.Context, id string) (core.Statement, error) {
	var st core.Statement
	if err := c.get(ctx, "/statements/"+url.PathEscape(id), nil, &st); err != nil {
		return core.Statement{}, err
	}
	return st, nil
}

// Ping reports whether the service answers a summary listing for a month
// no statement can have.
func (c *Client) Ping(ctx context.Context) error {
	var raw json.RawMessage
	return c.get(ctx, "/analytics/summary", url.Values{"year": {"1900"}, "month": {"1"}}, &raw)
}

// UpdateCategory calls PUT /transactions/{id}.
func (c *Client) UpdateCategory(ctx context.Context, transactionID, category string, learn bool) error {
	body, err := json.Marshal(struct {
		Category string `json:"category"`
		Learn    bool   `json:"learn"`
	}{category, learn})
	if err != nil {
		return fmt.Errorf("encode category update: %w", err)
	}
	u := c.baseURL + "/transactions/" + url.PathEscape(transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, updateKind, nil)
}

// UploadStatement posts the file as multipart form data. The service
// answers 400 for unreadable files and 401 for a wrong password.
func (c *Client) UploadStatement(ctx context.Context, filename string, file io.Reader, password string) (core.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return core.UploadResult{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return core.UploadResult{}, fmt.Errorf("copy upload: %w", err)
	}
	if password != "" {
		if err := mw.WriteField("password", password); err != nil {
			return core.UploadResult{}, fmt.Errorf("write password field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return core.UploadResult{}, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/statements/upload", &buf)
	if err != nil {
		return core.UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res core.UploadResult
	if err := c.do(ctx, req, uploadKind, &res); err != nil {
		return core.UploadResult{}, err
	}
	if res.Filename == "" {
		res.Filename = filename
	}
	return res, nil
}
