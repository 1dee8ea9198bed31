// Package datasync is the stale-while-revalidate cache between the UI and
// the bound API client. Keys are deterministic strings so identical queries
// share one entry, and a key of "" suppresses fetching entirely.
package datasync

import (
	"fmt"
	"strings"

	"fingram/internal/api"
)

// SummaryKey is "" when unauthenticated, which suppresses the fetch.
func SummaryKey(authenticated bool) string {
	if !authenticated {
		return ""
	}
	return "summary"
}

// CategoriesKey never depends on the credential: the listing is public.
func CategoriesKey() string { return "categories" }

// TransactionsKey builds a pipe-delimited key with parts in significance
// order. Unset parameters are omitted so equivalent queries collide.
func TransactionsKey(authenticated bool, params api.TransactionParams) string {
	if !authenticated {
		return ""
	}
	parts := []string{"transactions"}
	if params.Page > 0 {
		parts = append(parts, fmt.Sprintf("page:%d", params.Page))
	}
	if params.Year > 0 && params.Month > 0 {
		parts = append(parts, fmt.Sprintf("date:%d-%d", params.Year, params.Month))
	}
	if params.CategoryID != "" {
		parts = append(parts, "category:"+params.CategoryID)
	}
	if params.Description != "" {
		parts = append(parts, "desc:"+params.Description)
	}
	return strings.Join(parts, "|")
}

func BudgetSummaryKey(authenticated bool, year, month int) string {
	if !authenticated {
		return ""
	}
	if year > 0 && month > 0 {
		return fmt.Sprintf("budget-summary|%d-%d", year, month)
	}
	return "budget-summary"
}

// transactionsPrefix matches every transactions key regardless of filters.
const transactionsPrefix = "transactions"
