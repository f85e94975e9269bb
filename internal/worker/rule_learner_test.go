package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"spendlens/internal/amqp"
	"spendlens/internal/core"
)

type fakeRules struct {
	saved map[string]string
	err   error
}

func (f *fakeRules) SaveRule(_ context.Context, description, category string) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[description] = category
	return nil
}

type fakeTxs map[string]core.Transaction

func (f fakeTxs) Transaction(_ context.Context, id string) (core.Transaction, error) {
	tx, ok := f[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func TestHandleCategoryChanged(t *testing.T) {
	txs := fakeTxs{"t1": {ID: "t1", Description: "UBER TRIP"}}

	tests := []struct {
		name      string
		msg       *amqp.CategoryChangedMessage
		storeErr  error
		wantRule  string
		permanent bool
		wantErr   bool
	}{
		{
			name:     "uses message description",
			msg:      amqp.NewCategoryChangedMessage("t9", core.CategoryTravel, "AIRBNB", true),
			wantRule: "AIRBNB",
		},
		{
			name:     "looks up missing description",
			msg:      amqp.NewCategoryChangedMessage("t1", core.CategoryTransportation, "", true),
			wantRule: "UBER TRIP",
		},
		{
			name: "ignores events without learn",
			msg:  amqp.NewCategoryChangedMessage("t1", core.CategoryTravel, "X", false),
		},
		{
			name:      "unknown category is permanent",
			msg:       amqp.NewCategoryChangedMessage("t1", "Snacks", "X", true),
			wantErr:   true,
			permanent: true,
		},
		{
			name:      "unknown transaction is permanent",
			msg:       amqp.NewCategoryChangedMessage("nope", core.CategoryTravel, "", true),
			wantErr:   true,
			permanent: true,
		},
		{
			name:     "store failure is retried",
			msg:      amqp.NewCategoryChangedMessage("t1", core.CategoryTravel, "X", true),
			storeErr: errors.New("database is locked"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := &fakeRules{err: tt.storeErr}
			err := NewRuleLearner(rules, txs).HandleCategoryChanged(context.Background(), tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, amqp.ErrPermanent) != tt.permanent {
				t.Errorf("permanent = %v, want %v", errors.Is(err, amqp.ErrPermanent), tt.permanent)
			}
			if tt.wantRule != "" && rules.saved[tt.wantRule] != tt.msg.Category {
				t.Errorf("saved = %v", rules.saved)
			}
			if tt.wantRule == "" && len(rules.saved) != 0 {
				t.Errorf("unexpected rules %v", rules.saved)
			}
		})
	}
}

func TestHandleCategoryChangedWithoutReader(t *testing.T) {
	msg := amqp.NewCategoryChangedMessage("t1", core.CategoryTravel, "", true)
	err := NewRuleLearner(&fakeRules{}, nil).HandleCategoryChanged(context.Background(), msg)
	if !errors.Is(err, amqp.ErrPermanent) {
		t.Fatalf("err = %v", err)
	}
}

type fakeConsumer struct {
	msgs    []*amqp.CategoryChangedMessage
	results []error
}

func (f *fakeConsumer) ConsumeCategoryChanged(ctx context.Context, handler amqp.Handler) error {
	for _, m := range f.msgs {
		f.results = append(f.results, handler(ctx, m))
	}
	return nil
}

func TestRun(t *testing.T) {
	rules := &fakeRules{}
	consumer := &fakeConsumer{msgs: []*amqp.CategoryChangedMessage{
		amqp.NewCategoryChangedMessage("a", core.CategoryFuel, "LAUGFS", true),
		amqp.NewCategoryChangedMessage("b", core.CategoryDining, "KFC", true),
	}}
	if err := NewRuleLearner(rules, nil).Run(context.Background(), consumer); err != nil {
		t.Fatal(err)
	}
	if len(rules.saved) != 2 || rules.saved["KFC"] != core.CategoryDining {
		t.Fatalf("saved = %v", rules.saved)
	}
}
