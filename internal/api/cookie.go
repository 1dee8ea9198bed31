package api

import (
	"context"
	"fmt"
	"net/http"

	"fingram/internal/core"
)

// CookieClient talks to the /vault surface. The credential is an HTTP-only
// cookie carried by the client's jar, so the struct itself is stateless; it
// must share the jar-backed http.Client with the auth resolver.
type CookieClient struct {
	rest rest
}

func NewCookieClient(baseURL string, client *http.Client) *CookieClient {
	return &CookieClient{rest: newREST(baseURL, "/vault", client, nil)}
}

// IsAuthenticated always reports true: session validity is owned by the auth
// resolver, not by this client.
func (c *CookieClient) IsAuthenticated() bool { return true }

// SessionToken is empty in cookie mode.
func (c *CookieClient) SessionToken() string { return "" }

func (c *CookieClient) GetSummary(ctx context.Context) (core.VaultSummary, error) {
	var dto summaryDTO
	if err := c.rest.getJSON(ctx, "/summary", nil, &dto); err != nil {
		return core.VaultSummary{}, err
	}
	return dto.toCore(), nil
}

func (c *CookieClient) GetBudgetSummary(ctx context.Context, year, month int) (core.VaultSummary, error) {
	var dto summaryDTO
	if err := c.rest.getJSON(ctx, "/summary", summaryQuery(year, month), &dto); err != nil {
		return core.VaultSummary{}, err
	}
	return dto.toCore(), nil
}

func (c *CookieClient) GetCategories(ctx context.Context) ([]core.Category, error) {
	var dtos []categoryDTO
	if err := c.rest.getJSON(ctx, "/categories", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toCore())
	}
	return out, nil
}

func (c *CookieClient) GetTransactions(ctx context.Context, params TransactionParams) (core.Paginated[core.Transaction], error) {
	var dto paginatedDTO[transactionDTO]
	if err := c.rest.getJSON(ctx, "/transactions", transactionQuery(params), &dto); err != nil {
		return core.Paginated[core.Transaction]{}, err
	}
	items := make([]core.Transaction, 0, len(dto.Items))
	for _, t := range dto.Items {
		items = append(items, t.toCore())
	}
	return core.Paginated[core.Transaction]{
		Items:      items,
		Total:      dto.Total,
		Page:       dto.Page,
		PageSize:   dto.PageSize,
		TotalPages: dto.TotalPages,
	}, nil
}

func (c *CookieClient) CreateTransaction(ctx context.Context, input CreateTransactionInput) (core.Transaction, error) {
	var out struct {
		Transaction *transactionDTO `json:"transaction"`
		Error       string          `json:"error,omitempty"`
	}
	if err := c.rest.postJSON(ctx, "/create-transaction", encodeCreate(input), &out); err != nil {
		return core.Transaction{}, err
	}
	if out.Error != "" {
		return core.Transaction{}, fmt.Errorf("%s", out.Error)
	}
	if out.Transaction == nil {
		return core.Transaction{}, nil
	}
	return out.Transaction.toCore(), nil
}

func (c *CookieClient) EditTransaction(ctx context.Context, input EditTransactionInput) error {
	return c.rest.postJSON(ctx, "/edit-transaction", encodeEdit(input), nil)
}

func (c *CookieClient) DeleteTransaction(ctx context.Context, transactionCode string) error {
	payload := map[string]string{"transactionCode": transactionCode}
	return c.rest.postJSON(ctx, "/delete-transaction", payload, nil)
}

func (c *CookieClient) SetBudgets(ctx context.Context, budgets []core.BudgetInput) error {
	return c.rest.postJSON(ctx, "/set-budgets", encodeBudgets(budgets), nil)
}
