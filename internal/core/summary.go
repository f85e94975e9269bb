package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"category"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryTotals is a category -> amount mapping that keeps insertion
// order. It encodes as a JSON object with keys in that order.
type CategoryTotals []CategoryAmount

// Get returns the amount for name and whether the key is present.
func (c CategoryTotals) Get(name string) (decimal.Decimal, bool) {
	for _, ca := range c {
		if ca.Name == name {
			return ca.Amount, true
		}
	}
	return decimal.Zero, false
}

// Has reports whether name is a key.
func (c CategoryTotals) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Add accumulates amount under name, appending the key on first sight.
func (c CategoryTotals) Add(name string, amount decimal.Decimal) CategoryTotals {
	for i := range c {
		if c[i].Name == name {
			c[i].Amount = c[i].Amount.Add(amount)
			return c
		}
	}
	return append(c, CategoryAmount{Name: name, Amount: amount})
}

// Names returns the keys in order.
func (c CategoryTotals) Names() []string {
	names := make([]string, len(c))
	for i, ca := range c {
		names[i] = ca.Name
	}
	return names
}

func (c CategoryTotals) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, ca := range c {
		total = total.Add(ca.Amount)
	}
	return total
}

// Clone returns an independent copy.
func (c CategoryTotals) Clone() CategoryTotals {
	if c == nil {
		return nil
	}
	out := make(CategoryTotals, len(c))
	copy(out, c)
	return out
}

func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ca := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ca.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(ca.Amount.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping document key order. A repeated
// key keeps its first position and its last value.
func (c *CategoryTotals) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode category totals: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode category totals: expected object, got %v", tok)
	}
	out := CategoryTotals{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode category totals: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode category totals: unexpected key %v", tok)
		}
		var amount decimal.Decimal
		if err := dec.Decode(&amount); err != nil {
			return fmt.Errorf("decode category totals %q: %w", name, err)
		}
		replaced := false
		for i := range out {
			if out[i].Name == name {
				out[i].Amount = amount
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, CategoryAmount{Name: name, Amount: amount})
		}
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode category totals: %w", err)
	}
	*c = out
	return nil
}
