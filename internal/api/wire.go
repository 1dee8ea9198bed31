package api

import (
	"encoding/json"
	"fmt"
	"time"

	"fingram/internal/core"
)

// Wire DTOs. The backend is inconsistent about category identity: listing
// endpoints embed a category object, the summary vault embeds only a
// categoryId, and budget upserts want a categoryCode. Everything is
// normalized here so the ambiguity never reaches core logic.

type categoryDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

type transactionDTO struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"`
	Description string       `json:"description,omitempty"`
	Amount      float64      `json:"amount"`
	IsCommitted bool         `json:"isCommitted"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	Date        string       `json:"date,omitempty"`
	Type        string       `json:"type"`
	VaultID     string       `json:"vaultId,omitempty"`
	CategoryID  string       `json:"categoryId,omitempty"`
	Category    *categoryDTO `json:"category,omitempty"`
}

type budgetDTO struct {
	Category       categoryDTO `json:"category"`
	Amount         float64     `json:"amount"`
	Spent          float64     `json:"spent,omitempty"`
	PercentageUsed float64     `json:"percentageUsed,omitempty"`
}

// keyedPair decodes the backend's ["key", value] tuple encoding used for the
// vault's transaction and budget maps.
type keyedPair[T any] struct {
	Key   string
	Value T
}

func (p *keyedPair[T]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("keyed pair has %d elements, want 2", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return fmt.Errorf("pair key: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("pair value: %w", err)
	}
	return nil
}

type vaultDTO struct {
	ID                            string                       `json:"id"`
	Transactions                  []keyedPair[transactionDTO]  `json:"transactions"`
	Budgets                       []keyedPair[budgetDTO]       `json:"budgets"`
	Balance                       float64                      `json:"balance"`
	TotalBudgetedAmount           float64                      `json:"totalBudgetedAmount"`
	PercentageTotalBudgetedAmount float64                      `json:"percentageTotalBudgetedAmount"`
	TotalSpentAmount              float64                      `json:"totalSpentAmount"`
	TotalIncomeAmount             float64                      `json:"totalIncomeAmount"`
}

type summaryDTO struct {
	Vault  vaultDTO    `json:"vault"`
	Budget []budgetDTO `json:"budget"`
	Date   struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	} `json:"date"`
}

type paginatedDTO[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

func (c categoryDTO) toCore() core.Category {
	kind := core.CategoryKind(c.Type)
	switch kind {
	case core.KindIncome, core.KindExpense, core.KindBoth:
	default:
		kind = core.KindBoth
	}
	return core.Category{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Kind:        kind,
		Description: c.Description,
	}
}

// toCore normalizes a wire transaction: the signed amount becomes a positive
// magnitude with the sign folded into Type, and whichever category shape the
// endpoint used becomes a *core.Category.
func (t transactionDTO) toCore() core.Transaction {
	txType := core.TransactionType(t.Type)
	if !txType.Valid() {
		if t.Amount < 0 {
			txType = core.Expense
		} else {
			txType = core.Income
		}
	}
	amount := core.MoneyFromFloat(t.Amount).Abs()

	var cat *core.Category
	if t.Category != nil {
		c := t.Category.toCore()
		cat = &c
	} else if t.CategoryID != "" {
		cat = &core.Category{ID: t.CategoryID}
	}

	return core.Transaction{
		ID:          t.ID,
		Code:        t.Code,
		Type:        txType,
		Amount:      amount,
		Category:    cat,
		Description: t.Description,
		Date:        parseWireDate(t.Date, t.CreatedAt),
	}
}

func (b budgetDTO) toCore() core.Budget {
	return core.Budget{
		Category:       b.Category.toCore(),
		Amount:         core.MoneyFromFloat(b.Amount),
		Spent:          core.MoneyFromFloat(b.Spent),
		PercentageUsed: b.PercentageUsed,
	}
}

// toCore keeps the server's aggregates authoritative: balance and totals are
// carried through as received, never recomputed from the transaction list.
func (s summaryDTO) toCore() core.VaultSummary {
	txs := make([]core.Transaction, 0, len(s.Vault.Transactions))
	for _, pair := range s.Vault.Transactions {
		txs = append(txs, pair.Value.toCore())
	}
	budgets := make([]core.Budget, 0, len(s.Budget))
	for _, b := range s.Budget {
		budgets = append(budgets, b.toCore())
	}
	return core.VaultSummary{
		VaultID:            s.Vault.ID,
		Balance:            core.MoneyFromFloat(s.Vault.Balance),
		TotalIncome:        core.MoneyFromFloat(s.Vault.TotalIncomeAmount),
		TotalSpent:         core.MoneyFromFloat(s.Vault.TotalSpentAmount),
		TotalBudgeted:      core.MoneyFromFloat(s.Vault.TotalBudgetedAmount),
		PercentageBudgeted: s.Vault.PercentageTotalBudgetedAmount,
		Transactions:       txs,
		Budgets:            budgets,
		Year:               s.Date.Year,
		Month:              s.Date.Month,
	}
}

func parseWireDate(date, createdAt string) time.Time {
	for _, raw := range []string{date, createdAt} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

type createTransactionRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	CategoryID  string  `json:"categoryId,omitempty"`
	Date        string  `json:"date,omitempty"`
	Type        string  `json:"type"`
}

func encodeCreate(input CreateTransactionInput) createTransactionRequest {
	req := createTransactionRequest{
		Amount:      input.Amount.Abs().Float64(),
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Type:        string(input.Type),
	}
	if !input.Date.IsZero() {
		req.Date = input.Date.Format(time.RFC3339)
	}
	return req
}

type editTransactionRequest struct {
	TransactionCode string   `json:"transactionCode"`
	NewAmount       *float64 `json:"newAmount,omitempty"`
	NewDate         *string  `json:"newDate,omitempty"`
	NewCategory     *string  `json:"newCategory,omitempty"`
	NewDescription  *string  `json:"newDescription,omitempty"`
	NewType         *string  `json:"newType,omitempty"`
}

func encodeEdit(input EditTransactionInput) editTransactionRequest {
	req := editTransactionRequest{
		TransactionCode: input.TransactionCode,
		NewCategory:     input.NewCategory,
		NewDescription:  input.NewDescription,
	}
	if input.NewAmount != nil {
		v := input.NewAmount.Abs().Float64()
		req.NewAmount = &v
	}
	if input.NewDate != nil {
		v := input.NewDate.Format(time.RFC3339)
		req.NewDate = &v
	}
	if input.NewType != nil {
		v := string(*input.NewType)
		req.NewType = &v
	}
	return req
}

type budgetUpsertEntry struct {
	CategoryCode string  `json:"categoryCode"`
	Amount       float64 `json:"amount"`
}

type setBudgetsRequest struct {
	Budgets []budgetUpsertEntry `json:"budgets"`
}

// encodeBudgets drops non-positive amounts: zeroing a budget is expressed by
// omitting its category from the upsert.
func encodeBudgets(budgets []core.BudgetInput) setBudgetsRequest {
	entries := make([]budgetUpsertEntry, 0, len(budgets))
	for _, b := range budgets {
		if b.Amount.Cents <= 0 {
			continue
		}
		entries = append(entries, budgetUpsertEntry{
			CategoryCode: b.CategoryCode,
			Amount:       b.Amount.Float64(),
		})
	}
	return setBudgetsRequest{Budgets: entries}
}
