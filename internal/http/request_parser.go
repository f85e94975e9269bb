// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// query filters for the analytics and statement views, and a body parser
// accepting JSON or form-encoded payloads.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendlens/internal/services"
)

const maxBodyBytes = 1 << 20

// ParseYear reads the year filter. Empty or "all" means every year.
func ParseYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" || strings.EqualFold(v, "all") {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return y, nil
}

// ComparisonParams holds the two picked statement ids.
type ComparisonParams struct {
	First  string
	Second string
}

func ParseComparisonParams(query url.Values) ComparisonParams {
	return ComparisonParams{
		First:  sanitizeInput(query.Get("first")),
		Second: sanitizeInput(query.Get("second")),
	}
}

// ParseTransactionQuery reads q, category, sort and dir.
func ParseTransactionQuery(query url.Values) (services.TransactionQuery, error) {
	q := services.TransactionQuery{
		Search:   sanitizeInput(query.Get("q")),
		Category: sanitizeInput(query.Get("category")),
		SortBy:   strings.ToLower(strings.TrimSpace(query.Get("sort"))),
	}
	if !services.ValidSortKey(q.SortBy) {
		return services.TransactionQuery{}, fmt.Errorf("invalid sort key %q", q.SortBy)
	}
	switch dir := strings.ToLower(strings.TrimSpace(query.Get("dir"))); dir {
	case "", "asc":
	case "desc":
		q.Desc = true
	default:
		return services.TransactionQuery{}, fmt.Errorf("invalid sort direction %q", dir)
	}
	return q, nil
}

// RequestBodyParser reads a request body once and exposes its fields
// whether it was sent as JSON or form-encoded.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like JSON, otherwise as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a sanitized string field.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetBool returns a boolean field; missing or malformed values are false.
func (p *RequestBodyParser) GetBool(key string) bool {
	b, err := strconv.ParseBool(p.Get(key))
	return err == nil && b
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
