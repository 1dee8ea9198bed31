package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fingram/internal/agent"
	"fingram/internal/api"
	"fingram/internal/auth"
	"fingram/internal/core"
	"fingram/internal/datasync"
)

type (
	authStateMsg auth.State

	summaryMsg struct {
		summary core.VaultSummary
	}

	transactionsMsg struct {
		page core.Paginated[core.Transaction]
	}

	categoriesMsg struct {
		categories []core.Category
	}

	budgetSummaryMsg struct {
		summary core.VaultSummary
	}

	conversationMsg agent.Snapshot

	mutationDoneMsg struct{}

	shareLinkMsg struct {
		url string
	}

	errorMsg struct {
		err error
	}
)

const requestTimeout = 15 * time.Second

// clientAuthed asks the bound client, not the resolver: the mock client is
// always authenticated and the cookie client delegates to its jar.
func (a *App) clientAuthed() bool {
	client := a.selector.Current()
	return client != nil && client.IsAuthenticated()
}

func (a *App) loadSummary() tea.Cmd {
	key := datasync.SummaryKey(a.clientAuthed())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res := a.sync.Get(ctx, key, func(ctx context.Context, client api.Client) (any, error) {
			return client.GetSummary(ctx)
		})
		if res.Err != nil {
			return errorMsg{err: res.Err}
		}
		summary, ok := res.Value.(core.VaultSummary)
		if !ok {
			return errorMsg{err: nil}
		}
		return summaryMsg{summary: summary}
	}
}

func (a *App) loadTransactions(params api.TransactionParams) tea.Cmd {
	key := datasync.TransactionsKey(a.clientAuthed(), params)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res := a.sync.Get(ctx, key, func(ctx context.Context, client api.Client) (any, error) {
			return client.GetTransactions(ctx, params)
		})
		if res.Err != nil {
			return errorMsg{err: res.Err}
		}
		page, ok := res.Value.(core.Paginated[core.Transaction])
		if !ok {
			return errorMsg{err: nil}
		}
		return transactionsMsg{page: page}
	}
}

func (a *App) loadCategories() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res := a.sync.Get(ctx, datasync.CategoriesKey(), func(ctx context.Context, client api.Client) (any, error) {
			return client.GetCategories(ctx)
		})
		if res.Err != nil {
			return errorMsg{err: res.Err}
		}
		categories, ok := res.Value.([]core.Category)
		if !ok {
			return errorMsg{err: nil}
		}
		return categoriesMsg{categories: categories}
	}
}

func (a *App) loadBudgetSummary(year, month int) tea.Cmd {
	key := datasync.BudgetSummaryKey(a.clientAuthed(), year, month)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res := a.sync.Get(ctx, key, func(ctx context.Context, client api.Client) (any, error) {
			return client.GetBudgetSummary(ctx, year, month)
		})
		if res.Err != nil {
			return errorMsg{err: res.Err}
		}
		summary, ok := res.Value.(core.VaultSummary)
		if !ok {
			return errorMsg{err: nil}
		}
		return budgetSummaryMsg{summary: summary}
	}
}

func (a *App) createTransaction(input api.CreateTransactionInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := a.sync.Mutate(ctx, func(ctx context.Context, client api.Client) error {
			_, err := client.CreateTransaction(ctx, input)
			return err
		})
		if err != nil {
			return errorMsg{err: err}
		}
		return mutationDoneMsg{}
	}
}

func (a *App) editTransaction(input api.EditTransactionInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := a.sync.Mutate(ctx, func(ctx context.Context, client api.Client) error {
			return client.EditTransaction(ctx, input)
		})
		if err != nil {
			return errorMsg{err: err}
		}
		return mutationDoneMsg{}
	}
}

func (a *App) deleteTransaction(code string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := a.sync.Mutate(ctx, func(ctx context.Context, client api.Client) error {
			return client.DeleteTransaction(ctx, code)
		})
		if err != nil {
			return errorMsg{err: err}
		}
		return mutationDoneMsg{}
	}
}

func (a *App) setBudgets(budgets []core.BudgetInput) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := a.sync.Mutate(ctx, func(ctx context.Context, client api.Client) error {
			return client.SetBudgets(ctx, budgets)
		})
		if err != nil {
			return errorMsg{err: err}
		}
		return mutationDoneMsg{}
	}
}

func (a *App) confirmTempToken() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := a.resolver.ConfirmTempToken(ctx); err != nil {
			return errorMsg{err: err}
		}
		return authStateMsg(a.resolver.State())
	}
}

func (a *App) authenticateVaultToken(token string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := a.resolver.AuthenticateWithVaultToken(ctx, token); err != nil {
			return errorMsg{err: err}
		}
		return authStateMsg(a.resolver.State())
	}
}

func (a *App) logout() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		a.resolver.Logout(ctx)
		return authStateMsg(a.resolver.State())
	}
}

func (a *App) requestShareLink() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		link, err := a.resolver.RequestShareLink(ctx)
		if err != nil {
			return errorMsg{err: err}
		}
		return shareLinkMsg{url: link}
	}
}

func (a *App) sendToAgent(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := a.conv.Send(ctx, text); err != nil {
			return errorMsg{err: err}
		}
		return conversationMsg(a.conv.Snapshot())
	}
}

func (a *App) submitDecisions() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := a.conv.SubmitDecisions(ctx); err != nil {
			return errorMsg{err: err}
		}
		return conversationMsg(a.conv.Snapshot())
	}
}
