package api

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fingram/internal/core"
)

const mockPageSize = 10

// MockOptions tunes the simulated backend. The zero value means no latency
// and no simulated failures, which is what tests want.
type MockOptions struct {
	LatencyMin  time.Duration
	LatencyMax  time.Duration
	FailureRate float64 // probability in [0,1] that a mutation fails
	Rand        *rand.Rand
}

// MockClient is a self-contained backend. Unlike the HTTP clients it owns its
// data, so summary aggregates are folded from its own transaction cache on
// every read instead of being hard-coded.
type MockClient struct {
	opts MockOptions

	mu         sync.Mutex
	categories []core.Category
	txs        []core.Transaction
	budgets    map[string]core.Money // categoryCode -> ceiling
	seq        int
}

func NewMockClient(opts MockOptions) *MockClient {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m := &MockClient{
		opts:    opts,
		budgets: map[string]core.Money{},
	}
	m.seed()
	return m
}

func (m *MockClient) IsAuthenticated() bool { return true }

func (m *MockClient) SessionToken() string { return "mock-token" }

func (m *MockClient) seed() {
	m.categories = []core.Category{
		{ID: "cat1", Code: "FOOD", Name: "Alimentação", Kind: core.KindExpense, Description: "Gastos com alimentação"},
		{ID: "cat2", Code: "SALARY", Name: "Salário", Kind: core.KindIncome, Description: "Receitas de salário"},
		{ID: "cat3", Code: "TRANSPORT", Name: "Transporte", Kind: core.KindExpense, Description: "Gastos com transporte"},
		{ID: "cat4", Code: "ENTERTAINMENT", Name: "Lazer", Kind: core.KindExpense, Description: "Gastos com entretenimento"},
		{ID: "cat5", Code: "INVESTMENT", Name: "Investimentos", Kind: core.KindBoth, Description: "Aplicações e resgates"},
	}
	now := time.Now()
	seedTx := func(code string, t core.TransactionType, cents int64, catIdx int, desc string, daysAgo int) core.Transaction {
		cat := m.categories[catIdx]
		return core.Transaction{
			ID:          uuid.NewString(),
			Code:        code,
			Type:        t,
			Amount:      core.Money{Cents: cents},
			Category:    &cat,
			Description: desc,
			Date:        now.AddDate(0, 0, -daysAgo),
		}
	}
	m.txs = []core.Transaction{
		seedTx("TXN001", core.Expense, 5099, 0, "Supermercado Pão de Açúcar", 1),
		seedTx("TXN002", core.Income, 150000, 1, "Salário Mensal", 2),
		seedTx("TXN003", core.Expense, 2550, 2, "Uber para trabalho", 3),
		seedTx("TXN004", core.Expense, 8990, 3, "Cinema e pipoca", 4),
		seedTx("TXN005", core.Expense, 20000, 4, "Aplicação CDB", 5),
	}
	m.seq = len(m.txs)
	m.budgets["FOOD"] = core.Money{Cents: 50000}
	m.budgets["TRANSPORT"] = core.Money{Cents: 20000}
}

// simulate sleeps for a random duration inside the configured latency band,
// honoring cancellation.
func (m *MockClient) simulate(ctx context.Context) error {
	band := m.opts.LatencyMax - m.opts.LatencyMin
	if m.opts.LatencyMin <= 0 && band <= 0 {
		return ctx.Err()
	}
	d := m.opts.LatencyMin
	if band > 0 {
		m.mu.Lock()
		d += time.Duration(m.opts.Rand.Int63n(int64(band)))
		m.mu.Unlock()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockClient) mutationFails() bool {
	if m.opts.FailureRate <= 0 {
		return false
	}
	return m.opts.Rand.Float64() < m.opts.FailureRate
}

// GetSummary folds balance, totals and per-budget spending from the current
// transaction cache, so mutations are immediately visible.
func (m *MockClient) GetSummary(ctx context.Context) (core.VaultSummary, error) {
	if err := m.simulate(ctx); err != nil {
		return core.VaultSummary{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	return m.foldLocked(now.Year(), int(now.Month())), nil
}

func (m *MockClient) GetBudgetSummary(ctx context.Context, year, month int) (core.VaultSummary, error) {
	if err := m.simulate(ctx); err != nil {
		return core.VaultSummary{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if year <= 0 || month <= 0 {
		now := time.Now()
		year, month = now.Year(), int(now.Month())
	}
	return m.foldLocked(year, month), nil
}

func (m *MockClient) foldLocked(year, month int) core.VaultSummary {
	var income, spent core.Money
	spentByCode := map[string]core.Money{}
	for _, tx := range m.txs {
		switch tx.Type {
		case core.Income:
			income = income.Add(tx.Amount)
		case core.Expense:
			spent = spent.Add(tx.Amount)
			if tx.Category != nil {
				spentByCode[tx.Category.Code] = spentByCode[tx.Category.Code].Add(tx.Amount)
			}
		}
	}

	var budgeted core.Money
	budgets := make([]core.Budget, 0, len(m.budgets))
	for code, amount := range m.budgets {
		cat, ok := m.categoryByCodeLocked(code)
		if !ok {
			continue
		}
		budgeted = budgeted.Add(amount)
		catSpent := spentByCode[code]
		pct := 0.0
		if amount.Cents > 0 {
			pct = catSpent.Float64() / amount.Float64() * 100
		}
		budgets = append(budgets, core.Budget{
			Category:       cat,
			Amount:         amount,
			Spent:          catSpent,
			PercentageUsed: pct,
		})
	}

	pctBudgeted := 0.0
	if income.Cents > 0 {
		pctBudgeted = budgeted.Float64() / income.Float64() * 100
	}

	txs := make([]core.Transaction, len(m.txs))
	copy(txs, m.txs)

	return core.VaultSummary{
		VaultID:            "mock-vault-1",
		Balance:            income.Sub(spent),
		TotalIncome:        income,
		TotalSpent:         spent,
		TotalBudgeted:      budgeted,
		PercentageBudgeted: pctBudgeted,
		Transactions:       txs,
		Budgets:            budgets,
		Year:               year,
		Month:              month,
	}
}

func (m *MockClient) GetCategories(ctx context.Context) ([]core.Category, error) {
	if err := m.simulate(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Category, len(m.categories))
	copy(out, m.categories)
	return out, nil
}

func (m *MockClient) GetTransactions(ctx context.Context, params TransactionParams) (core.Paginated[core.Transaction], error) {
	if err := m.simulate(ctx); err != nil {
		return core.Paginated[core.Transaction]{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := make([]core.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		if params.Description != "" &&
			!strings.Contains(strings.ToLower(tx.Description), strings.ToLower(params.Description)) {
			continue
		}
		if params.CategoryID != "" && (tx.Category == nil || tx.Category.ID != params.CategoryID) {
			continue
		}
		if params.Year > 0 && params.Month > 0 &&
			(tx.Date.Year() != params.Year || int(tx.Date.Month()) != params.Month) {
			continue
		}
		filtered = append(filtered, tx)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * mockPageSize
	end := start + mockPageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	totalPages := (len(filtered) + mockPageSize - 1) / mockPageSize

	return core.Paginated[core.Transaction]{
		Items:      filtered[start:end],
		Total:      len(filtered),
		Page:       page,
		PageSize:   mockPageSize,
		TotalPages: totalPages,
	}, nil
}

func (m *MockClient) CreateTransaction(ctx context.Context, input CreateTransactionInput) (core.Transaction, error) {
	if err := m.simulate(ctx); err != nil {
		return core.Transaction{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationFails() {
		return core.Transaction{}, fmt.Errorf("simulated failure creating transaction")
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	m.seq++
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Code:        fmt.Sprintf("TXN%03d", m.seq),
		Type:        input.Type,
		Amount:      input.Amount.Abs(),
		Description: input.Description,
		Date:        date,
	}
	if cat, ok := m.categoryByIDLocked(input.CategoryID); ok {
		tx.Category = &cat
	}
	if err := tx.Validate(); err != nil {
		m.seq--
		return core.Transaction{}, err
	}
	m.txs = append([]core.Transaction{tx}, m.txs...)
	return tx, nil
}

func (m *MockClient) EditTransaction(ctx context.Context, input EditTransactionInput) error {
	if err := m.simulate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationFails() {
		return fmt.Errorf("simulated failure editing transaction")
	}

	for i := range m.txs {
		if m.txs[i].Code != input.TransactionCode {
			continue
		}
		if input.NewAmount != nil {
			m.txs[i].Amount = input.NewAmount.Abs()
		}
		if input.NewDate != nil {
			m.txs[i].Date = *input.NewDate
		}
		if input.NewDescription != nil {
			m.txs[i].Description = *input.NewDescription
		}
		if input.NewType != nil {
			m.txs[i].Type = *input.NewType
		}
		if input.NewCategory != nil {
			if cat, ok := m.categoryByIDLocked(*input.NewCategory); ok {
				m.txs[i].Category = &cat
			}
		}
		return nil
	}
	return fmt.Errorf("transaction %s not found", input.TransactionCode)
}

func (m *MockClient) DeleteTransaction(ctx context.Context, transactionCode string) error {
	if err := m.simulate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationFails() {
		return fmt.Errorf("simulated failure deleting transaction")
	}

	for i := range m.txs {
		if m.txs[i].Code == transactionCode {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s not found", transactionCode)
}

// SetBudgets replaces the budget set. Non-positive amounts mean omission, so
// a zeroed category simply disappears from the next summary.
func (m *MockClient) SetBudgets(ctx context.Context, budgets []core.BudgetInput) error {
	if err := m.simulate(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mutationFails() {
		return fmt.Errorf("simulated failure setting budgets")
	}

	next := map[string]core.Money{}
	for _, b := range budgets {
		if b.Amount.Cents <= 0 {
			continue
		}
		next[b.CategoryCode] = b.Amount
	}
	m.budgets = next
	return nil
}

func (m *MockClient) categoryByIDLocked(id string) (core.Category, bool) {
	for _, c := range m.categories {
		if c.ID == id {
			return c, true
		}
	}
	return core.Category{}, false
}

func (m *MockClient) categoryByCodeLocked(code string) (core.Category, bool) {
	for _, c := range m.categories {
		if c.Code == code {
			return c, true
		}
	}
	return core.Category{}, false
}
