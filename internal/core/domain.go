package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	KindIncome  CategoryKind = "income"
	KindExpense CategoryKind = "expense"
	KindBoth    CategoryKind = "both"
)

type (
	TransactionType string

	// CategoryKind tells which transaction types a category accepts.
	CategoryKind string

	// Category is the canonical category shape. Backend endpoints disagree on
	// whether a category travels as an id, a code or an embedded object;
	// everything is normalized into this struct at the client boundary.
	Category struct {
		ID          string
		Code        string
		Name        string
		Kind        CategoryKind
		Description string
	}

	// Transaction amounts are positive magnitudes; the sign lives in Type.
	Transaction struct {
		ID          string
		Code        string // stable external identifier, distinct from ID
		Type        TransactionType
		Amount      Money
		Category    *Category
		Description string
		Date        time.Time
	}

	// Budget is the per-category ceiling for one month. Spent and
	// PercentageUsed are server-derived.
	Budget struct {
		Category       Category
		Amount         Money
		Spent          Money
		PercentageUsed float64
	}

	// BudgetInput is one entry of a bulk budget upsert.
	BudgetInput struct {
		CategoryCode string
		Amount       Money
	}

	// VaultSummary carries the server-computed aggregates for a vault.
	// Balance, totals and percentages are authoritative as received; the
	// client never recomputes them from Transactions.
	VaultSummary struct {
		VaultID            string
		Balance            Money
		TotalIncome        Money
		TotalSpent         Money
		TotalBudgeted      Money
		PercentageBudgeted float64
		Transactions       []Transaction
		Budgets            []Budget
		Year               int
		Month              int
	}

	Paginated[T any] struct {
		Items      []T
		Total      int
		Page       int
		PageSize   int
		TotalPages int
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDate      = errors.New("invalid date")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Accepts reports whether a category of this kind can hold the given
// transaction type.
func (k CategoryKind) Accepts(t TransactionType) bool {
	switch k {
	case KindBoth:
		return t.Valid()
	case KindIncome:
		return t == Income
	case KindExpense:
		return t == Expense
	default:
		return false
	}
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}
