// Package api provides the backend clients. Three interchangeable
// implementations sit behind one interface: a cookie-credentialed client for
// standalone sessions, a bearer-token client for embedded sessions, and a
// deterministic in-memory mock. The Selector owns which one is bound.
package api

import (
	"context"
	"time"

	"fingram/internal/core"
)

// TransactionParams filters and pages the transaction listing. Year and
// Month only apply together.
type TransactionParams struct {
	Page        int
	Year        int
	Month       int
	CategoryID  string
	Description string
}

// CreateTransactionInput carries a new transaction. Amount is a positive
// magnitude; the sign is derived from Type at the wire boundary.
type CreateTransactionInput struct {
	Amount      core.Money
	Type        core.TransactionType
	Description string
	CategoryID  string
	Date        time.Time
}

// EditTransactionInput is a partial update addressed by transaction code.
// Nil fields are left unchanged.
type EditTransactionInput struct {
	TransactionCode string
	NewAmount       *core.Money
	NewDate         *time.Time
	NewCategory     *string
	NewDescription  *string
	NewType         *core.TransactionType
}

// Client is the unified backend surface. All implementations normalize wire
// shapes into core types before returning.
type Client interface {
	GetSummary(ctx context.Context) (core.VaultSummary, error)
	GetBudgetSummary(ctx context.Context, year, month int) (core.VaultSummary, error)
	GetCategories(ctx context.Context) ([]core.Category, error)
	GetTransactions(ctx context.Context, params TransactionParams) (core.Paginated[core.Transaction], error)
	CreateTransaction(ctx context.Context, input CreateTransactionInput) (core.Transaction, error)
	EditTransaction(ctx context.Context, input EditTransactionInput) error
	DeleteTransaction(ctx context.Context, transactionCode string) error
	SetBudgets(ctx context.Context, budgets []core.BudgetInput) error

	IsAuthenticated() bool
	SessionToken() string
}
