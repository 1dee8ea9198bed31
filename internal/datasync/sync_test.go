package datasync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fingram/internal/api"
)

func TestKeyBuilders(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"summary authed", SummaryKey(true), "summary"},
		{"summary anonymous", SummaryKey(false), ""},
		{"categories", CategoriesKey(), "categories"},
		{
			"transactions full",
			TransactionsKey(true, api.TransactionParams{Page: 1, Year: 2024, Month: 3, CategoryID: "cat1", Description: "x"}),
			"transactions|page:1|date:2024-3|category:cat1|desc:x",
		},
		{
			"transactions sparse",
			TransactionsKey(true, api.TransactionParams{Page: 2}),
			"transactions|page:2",
		},
		{"transactions anonymous", TransactionsKey(false, api.TransactionParams{Page: 1}), ""},
		{"budget summary", BudgetSummaryKey(true, 2024, 3), "budget-summary|2024-3"},
		{"budget summary no date", BudgetSummaryKey(true, 0, 0), "budget-summary"},
		{"budget summary anonymous", BudgetSummaryKey(false, 2024, 3), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("key = %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func countingFetcher(counter *atomic.Int64, value any) Fetcher {
	return func(ctx context.Context, client api.Client) (any, error) {
		counter.Add(1)
		return value, nil
	}
}

func testManager(freshFor time.Duration) *Manager {
	client := api.NewMockClient(api.MockOptions{})
	return NewManager(func() api.Client { return client }, Options{FreshFor: freshFor}, nil)
}

func TestGetCachesAndDedupes(t *testing.T) {
	m := testManager(time.Minute)
	var calls atomic.Int64
	fetch := countingFetcher(&calls, "v1")

	res := m.Get(context.Background(), "summary", fetch)
	if res.Err != nil || res.Value != "v1" || res.Stale {
		t.Fatalf("res = %+v", res)
	}
	m.Get(context.Background(), "summary", fetch)
	m.Get(context.Background(), "summary", fetch)
	if calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1 while fresh", calls.Load())
	}
}

func TestGetSuppressedOnEmptyKey(t *testing.T) {
	m := testManager(time.Minute)
	var calls atomic.Int64

	res := m.Get(context.Background(), "", countingFetcher(&calls, "v"))
	if res.Key != "" || res.Value != nil || calls.Load() != 0 {
		t.Errorf("empty key must suppress the fetch, res = %+v calls = %d", res, calls.Load())
	}
}

func TestStaleServedWhileRevalidating(t *testing.T) {
	m := testManager(time.Minute)

	var mu sync.Mutex
	value := "old"
	fetch := func(ctx context.Context, client api.Client) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		return value, nil
	}

	if res := m.Get(context.Background(), "summary", fetch); res.Value != "old" {
		t.Fatalf("res = %+v", res)
	}

	mu.Lock()
	value = "new"
	mu.Unlock()
	m.Invalidate("summary")

	res := m.Get(context.Background(), "summary", fetch)
	if !res.Stale || res.Value != "old" {
		t.Fatalf("stale read should serve the old value immediately, res = %+v", res)
	}

	// The background revalidation lands the new value.
	deadline := time.After(2 * time.Second)
	for {
		res = m.Get(context.Background(), "summary", fetch)
		if res.Value == "new" && !res.Stale {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("revalidation never landed, res = %+v", res)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestMutationInvalidatesRelatedKeysOnly(t *testing.T) {
	m := testManager(time.Minute)
	var summary, transactions, budgetSummary atomic.Int64

	refreshed := make(chan string, 8)
	m.Subscribe(func(res Result) {
		if res.Err == nil {
			refreshed <- res.Key
		}
	})

	ctx := context.Background()
	m.Get(ctx, "summary", countingFetcher(&summary, "s"))
	m.Get(ctx, "transactions|page:1", countingFetcher(&transactions, "t"))
	m.Get(ctx, "budget-summary|2024-3", countingFetcher(&budgetSummary, "b"))
	for i := 0; i < 3; i++ {
		<-refreshed
	}

	err := m.Mutate(ctx, func(ctx context.Context, client api.Client) error {
		return client.EditTransaction(ctx, api.EditTransactionInput{TransactionCode: "TXN001"})
	})
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case key := <-refreshed:
			got[key] = true
		case <-timeout:
			t.Fatalf("refetch incomplete, got %v", got)
		}
	}
	if !got["summary"] || !got["transactions|page:1"] {
		t.Errorf("refetched = %v, want summary and transactions|page:1", got)
	}
	if got["budget-summary|2024-3"] {
		t.Error("budget-summary must not be refetched by a transaction mutation")
	}
	if budgetSummary.Load() != 1 {
		t.Errorf("budget-summary fetches = %d, want the initial one only", budgetSummary.Load())
	}

	// The aged entries now count as stale.
	if res := m.Get(ctx, "budget-summary|2024-3", countingFetcher(&budgetSummary, "b")); res.Err != nil {
		t.Fatal(res.Err)
	}
}

func TestFailedMutationInvalidatesNothing(t *testing.T) {
	m := testManager(time.Minute)
	var summary atomic.Int64
	ctx := context.Background()
	m.Get(ctx, "summary", countingFetcher(&summary, "s"))

	boom := errors.New("mutation rejected")
	err := m.Mutate(ctx, func(ctx context.Context, client api.Client) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	if res := m.Get(ctx, "summary", countingFetcher(&summary, "s")); res.Stale {
		t.Error("failed mutation must leave cached entries fresh")
	}
	if summary.Load() != 1 {
		t.Errorf("fetches = %d, want no refetch after a failed mutation", summary.Load())
	}
}

func TestInvalidateAllDropsEverything(t *testing.T) {
	m := testManager(time.Minute)
	var calls atomic.Int64
	ctx := context.Background()

	m.Get(ctx, "summary", countingFetcher(&calls, "v"))
	m.InvalidateAll()
	res := m.Get(ctx, "summary", countingFetcher(&calls, "v"))
	if res.Stale {
		t.Error("after a full drop there is nothing stale to serve")
	}
	if calls.Load() != 2 {
		t.Errorf("fetches = %d, want a fresh fetch after the drop", calls.Load())
	}
}
