package api

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"fingram/internal/core"
)

func testMock() *MockClient {
	return NewMockClient(MockOptions{Rand: rand.New(rand.NewSource(1))})
}

func TestMockSummaryFoldsFromTransactions(t *testing.T) {
	m := testMock()
	ctx := context.Background()

	// Keep exactly one income of 1500 and one expense of 50.99.
	for _, code := range []string{"TXN003", "TXN004", "TXN005"} {
		if err := m.DeleteTransaction(ctx, code); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := m.GetSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalIncome.Cents != 150000 {
		t.Errorf("income = %d cents", sum.TotalIncome.Cents)
	}
	if sum.TotalSpent.Cents != 5099 {
		t.Errorf("spent = %d cents", sum.TotalSpent.Cents)
	}
	if sum.Balance.Cents != 144901 {
		t.Errorf("balance = %d cents, want 144901 folded from the cache", sum.Balance.Cents)
	}
}

func TestMockCreateVisibleInSummary(t *testing.T) {
	m := testMock()
	ctx := context.Background()

	before, _ := m.GetSummary(ctx)
	tx, err := m.CreateTransaction(ctx, CreateTransactionInput{
		Amount:      core.Money{Cents: 1000},
		Type:        core.Expense,
		Description: "Café",
		CategoryID:  "cat1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.ID == "" || tx.Code == "" {
		t.Errorf("created transaction missing identity: %+v", tx)
	}
	if tx.Category == nil || tx.Category.ID != "cat1" {
		t.Errorf("category not resolved: %+v", tx.Category)
	}

	after, _ := m.GetSummary(ctx)
	if got := after.TotalSpent.Sub(before.TotalSpent); got.Cents != 1000 {
		t.Errorf("spent delta = %d cents, want the new expense folded in", got.Cents)
	}
}

func TestMockCreateValidation(t *testing.T) {
	m := testMock()
	_, err := m.CreateTransaction(context.Background(), CreateTransactionInput{
		Amount: core.Money{Cents: 0},
		Type:   core.Expense,
	})
	if err == nil {
		t.Fatal("zero amount should be rejected")
	}
}

func TestMockTransactionFilters(t *testing.T) {
	m := testMock()
	ctx := context.Background()

	t.Run("description substring, case-insensitive", func(t *testing.T) {
		page, err := m.GetTransactions(ctx, TransactionParams{Description: "uber"})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 1 || page.Items[0].Code != "TXN003" {
			t.Errorf("page = %+v", page)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		page, err := m.GetTransactions(ctx, TransactionParams{CategoryID: "cat1"})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 1 {
			t.Errorf("total = %d", page.Total)
		}
	})

	t.Run("no filter pages everything", func(t *testing.T) {
		page, err := m.GetTransactions(ctx, TransactionParams{Page: 1})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 5 || page.TotalPages != 1 {
			t.Errorf("page = %+v", page)
		}
	})
}

func TestMockBudgetZeroingRemoves(t *testing.T) {
	m := testMock()
	ctx := context.Background()

	err := m.SetBudgets(ctx, []core.BudgetInput{
		{CategoryCode: "FOOD", Amount: core.Money{Cents: 30000}},
		{CategoryCode: "TRANSPORT", Amount: core.Money{Cents: 0}},
	})
	if err != nil {
		t.Fatal(err)
	}

	sum, _ := m.GetSummary(ctx)
	if len(sum.Budgets) != 1 {
		t.Fatalf("budgets = %+v, want zeroed category absent", sum.Budgets)
	}
	if sum.Budgets[0].Category.Code != "FOOD" || sum.Budgets[0].Amount.Cents != 30000 {
		t.Errorf("budget = %+v", sum.Budgets[0])
	}
}

func TestMockFailureRate(t *testing.T) {
	m := NewMockClient(MockOptions{FailureRate: 1.0, Rand: rand.New(rand.NewSource(1))})
	if err := m.EditTransaction(context.Background(), EditTransactionInput{TransactionCode: "TXN001"}); err == nil {
		t.Error("failure rate 1.0 must fail every mutation")
	}
	if _, err := m.GetSummary(context.Background()); err != nil {
		t.Errorf("reads never fail: %v", err)
	}
}

func TestMockCancelledContext(t *testing.T) {
	m := NewMockClient(MockOptions{LatencyMin: time.Second, LatencyMax: 2 * time.Second, Rand: rand.New(rand.NewSource(1))})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.GetSummary(ctx); err == nil {
		t.Error("cancelled context should abort the simulated latency")
	}
}
