package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"fingram/internal/core"
)

// BearerClient talks to the /miniapp surface with an Authorization header.
// The token is replaceable in flight: the selector updates it whenever the
// embedded credential changes without rebinding the client.
type BearerClient struct {
	mu    sync.RWMutex
	token string
	rest  rest
}

func NewBearerClient(baseURL string, client *http.Client, token string) *BearerClient {
	b := &BearerClient{token: token}
	b.rest = newREST(baseURL, "/miniapp", client, b.setAuthHeader)
	return b
}

// UpdateSessionToken swaps the credential used for subsequent requests.
func (b *BearerClient) UpdateSessionToken(token string) {
	b.mu.Lock()
	b.token = token
	b.mu.Unlock()
}

func (b *BearerClient) IsAuthenticated() bool { return b.SessionToken() != "" }

func (b *BearerClient) SessionToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

func (b *BearerClient) setAuthHeader(req *http.Request) {
	if token := b.SessionToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (b *BearerClient) requireToken() error {
	if b.SessionToken() == "" {
		return core.ErrNotAuthenticated
	}
	return nil
}

func (b *BearerClient) GetSummary(ctx context.Context) (core.VaultSummary, error) {
	if err := b.requireToken(); err != nil {
		return core.VaultSummary{}, err
	}
	var dto summaryDTO
	if err := b.rest.getJSON(ctx, "/summary", nil, &dto); err != nil {
		return core.VaultSummary{}, err
	}
	return dto.toCore(), nil
}

func (b *BearerClient) GetBudgetSummary(ctx context.Context, year, month int) (core.VaultSummary, error) {
	if err := b.requireToken(); err != nil {
		return core.VaultSummary{}, err
	}
	var dto summaryDTO
	if err := b.rest.getJSON(ctx, "/summary", summaryQuery(year, month), &dto); err != nil {
		return core.VaultSummary{}, err
	}
	return dto.toCore(), nil
}

// GetCategories is the one uncredentialed read on this surface.
func (b *BearerClient) GetCategories(ctx context.Context) ([]core.Category, error) {
	var dtos []categoryDTO
	if err := b.rest.getJSON(ctx, "/categories", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]core.Category, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toCore())
	}
	return out, nil
}

func (b *BearerClient) GetTransactions(ctx context.Context, params TransactionParams) (core.Paginated[core.Transaction], error) {
	if err := b.requireToken(); err != nil {
		return core.Paginated[core.Transaction]{}, err
	}
	var dto paginatedDTO[transactionDTO]
	if err := b.rest.getJSON(ctx, "/transactions", transactionQuery(params), &dto); err != nil {
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

func (b *BearerClient) CreateTransaction(ctx context.Context, input CreateTransactionInput) (core.Transaction, error) {
	if err := b.requireToken(); err != nil {
		return core.Transaction{}, err
	}
	var out struct {
		Transaction *transactionDTO `json:"transaction"`
		Error       string          `json:"error,omitempty"`
	}
	if err := b.rest.postJSON(ctx, "/create-transaction", encodeCreate(input), &out); err != nil {
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

func (b *BearerClient) EditTransaction(ctx context.Context, input EditTransactionInput) error {
	if err := b.requireToken(); err != nil {
		return err
	}
	return b.rest.postJSON(ctx, "/edit-transaction", encodeEdit(input), nil)
}

func (b *BearerClient) DeleteTransaction(ctx context.Context, transactionCode string) error {
	if err := b.requireToken(); err != nil {
		return err
	}
	payload := map[string]string{"transactionCode": transactionCode}
	return b.rest.postJSON(ctx, "/delete-transaction", payload, nil)
}

func (b *BearerClient) SetBudgets(ctx context.Context, budgets []core.BudgetInput) error {
	if err := b.requireToken(); err != nil {
		return err
	}
	return b.rest.postJSON(ctx, "/set-budgets", encodeBudgets(budgets), nil)
}
