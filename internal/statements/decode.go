package statements

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"spendlens/internal/core"
)

// Categorizer assigns a category to a transaction description.
type Categorizer interface {
	Categorize(ctx context.Context, description string) string
}

// CategorizerFunc adapts a plain function to Categorizer.
type CategorizerFunc func(description string) string

func (f CategorizerFunc) Categorize(_ context.Context, description string) string {
	return f(description)
}

// DecodeStatement reads a JSON statement export. Missing ids get fresh
// UUIDs, uncategorized transactions go through categorize (or the
// default category when nil). Malformed input is rejected as
// invalid_format.
func DecodeStatement(ctx context.Context, r io.Reader, filename string, categorize Categorizer) (core.Statement, error) {
	var st core.Statement
	dec := json.NewDecoder(r)
	if err := dec.Decode(&st); err != nil {
		return core.Statement{}, core.Reject(core.ReasonInvalidFormat, fmt.Sprintf("decode %s: %v", filename, err))
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Filename == "" {
		st.Filename = filename
	}
	if st.UploadDate.IsZero() {
		st.UploadDate = core.Date{Time: time.Now().UTC()}
	}
	for i := range st.Transactions {
		tx := &st.Transactions[i]
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if strings.TrimSpace(tx.Category) == "" {
			if categorize != nil {
				tx.Category = categorize.Categorize(ctx, tx.Description)
			} else {
				tx.Category = core.DefaultCategory
			}
		}
	}
	if err := st.Validate(); err != nil {
		return core.Statement{}, core.Reject(core.ReasonInvalidFormat, err.Error())
	}
	return st, nil
}
