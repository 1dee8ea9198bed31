// Package tui is the terminal front-end. It consumes only the auth, api,
// datasync and agent interfaces; all protocol logic lives below it.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fingram/internal/agent"
	"fingram/internal/api"
	"fingram/internal/auth"
	"fingram/internal/core"
	"fingram/internal/datasync"
	"fingram/internal/log"
	"fingram/internal/telegram"
)

type Tab int

const (
	TabSummary Tab = iota
	TabTransactions
	TabBudget
	TabAssistant
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabSummary:
		return "Resumo"
	case TabTransactions:
		return "Transações"
	case TabBudget:
		return "Orçamento"
	case TabAssistant:
		return "Assistente"
	default:
		return "?"
	}
}

type screen int

const (
	screenLoading screen = iota
	screenTempToken
	screenVaultToken
	screenMain
)

// App is the bubbletea model. One instance runs for the lifetime of the
// program; the screen field tracks which top-level state is showing.
type App struct {
	resolver *auth.Resolver
	selector *api.Selector
	sync     *datasync.Manager
	conv     *agent.Conversation
	env      telegram.Environment
	styles   Styles
	logger   *log.Logger

	width, height int
	screen        screen
	tab           Tab
	spinner       spinner.Model
	busy          bool

	authState auth.State

	tokenInput textinput.Model
	chatInput  textinput.Model

	summary       *core.VaultSummary
	budgetSummary *core.VaultSummary
	transactions  core.Paginated[core.Transaction]
	categories    []core.Category
	txCursor      int
	txPage        int
	form          *txForm
	budgetForm    *budgetForm

	convSnap       agent.Snapshot
	approvalCursor int

	shareLink string
	errText   string
	panicked  any
}

func NewApp(resolver *auth.Resolver, selector *api.Selector, sync *datasync.Manager, conv *agent.Conversation, env telegram.Environment, logger *log.Logger) *App {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	tokenInput := textinput.New()
	tokenInput.Placeholder = "token de acesso"
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.CharLimit = 128
	tokenInput.Width = 40

	chatInput := textinput.New()
	chatInput.Placeholder = "Almoço 20 Reais"
	chatInput.CharLimit = 500
	chatInput.Width = 48

	return &App{
		resolver:   resolver,
		selector:   selector,
		sync:       sync,
		conv:       conv,
		env:        env,
		styles:     NewStyles(env.Theme),
		logger:     logger.WithComponent("tui"),
		spinner:    sp,
		tokenInput: tokenInput,
		chatInput:  chatInput,
		txPage:     1,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.spinner.Tick,
		func() tea.Msg { return authStateMsg(a.resolver.State()) },
	)
}

func (a *App) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// The recover must repair the named returns: a bare recover would hand
	// bubbletea a nil model and kill the program instead of showing the
	// retry screen.
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("recovered from panic", "panic", fmt.Sprintf("%v", r))
			a.panicked = r
			model, cmd = a, nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case authStateMsg:
		return a.onAuthState(auth.State(msg))

	case summaryMsg:
		a.busy = false
		s := msg.summary
		a.summary = &s
		return a, nil

	case budgetSummaryMsg:
		a.busy = false
		s := msg.summary
		a.budgetSummary = &s
		return a, nil

	case transactionsMsg:
		a.busy = false
		a.transactions = msg.page
		if a.txCursor >= len(msg.page.Items) {
			a.txCursor = 0
		}
		return a, nil

	case categoriesMsg:
		a.categories = msg.categories
		if a.form != nil {
			a.form.setCategories(msg.categories)
		}
		return a, nil

	case conversationMsg:
		a.busy = false
		a.convSnap = agent.Snapshot(msg)
		a.approvalCursor = 0
		return a, nil

	case mutationDoneMsg:
		a.busy = false
		a.form = nil
		a.budgetForm = nil
		a.errText = ""
		now := core.CurrentYearMonth()
		return a, tea.Batch(a.loadSummary(), a.loadTransactions(a.txParams()), a.loadBudgetSummary(now.Year, now.Month))

	case shareLinkMsg:
		a.busy = false
		a.shareLink = msg.url
		return a, nil

	case errorMsg:
		a.busy = false
		if msg.err != nil {
			a.errText = msg.err.Error()
		} else {
			a.errText = "resposta inesperada do servidor"
		}
		return a, nil

	case tea.KeyMsg:
		return a.onKey(msg)
	}

	return a, nil
}

// AuthStateChanged adapts a resolver state change into a program message.
// The entrypoint forwards resolver subscriptions through it.
func AuthStateChanged(st auth.State) tea.Msg { return authStateMsg(st) }

func (a *App) onAuthState(st auth.State) (tea.Model, tea.Cmd) {
	a.authState = st
	a.selector.OnAuthState(st)

	// An unresolved environment means the mock backend is bound; there is no
	// credential flow to run.
	if a.env.Mode == telegram.ModeUnresolved {
		a.screen = screenMain
		a.busy = true
		return a, tea.Batch(a.loadSummary(), a.loadCategories(), a.loadTransactions(a.txParams()))
	}

	switch {
	case st.IsLoading:
		a.screen = screenLoading
		return a, nil
	case st.PendingTempToken != "":
		a.screen = screenTempToken
		return a, nil
	case !st.IsAuthenticated && st.Mode == auth.ModeStandalone:
		a.screen = screenVaultToken
		a.tokenInput.Focus()
		if st.Err != nil {
			a.errText = st.Err.Error()
		}
		return a, nil
	case !st.IsAuthenticated:
		a.screen = screenMain
		if st.Err != nil {
			a.errText = st.Err.Error()
		}
		return a, nil
	default:
		a.screen = screenMain
		a.errText = ""
		a.busy = true
		return a, tea.Batch(a.loadSummary(), a.loadCategories(), a.loadTransactions(a.txParams()))
	}
}

func (a *App) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.panicked != nil {
		switch msg.String() {
		case "r":
			a.panicked = nil
			return a, func() tea.Msg { return authStateMsg(a.resolver.State()) }
		case "q", "ctrl+c":
			return a, tea.Quit
		}
		return a, nil
	}

	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.screen {
	case screenTempToken:
		return a.onTempTokenKey(msg)
	case screenVaultToken:
		return a.onVaultTokenKey(msg)
	case screenMain:
		return a.onMainKey(msg)
	}
	return a, nil
}

// onTempTokenKey drives the explicit confirmation of a URL token. Nothing is
// exchanged until the user picks.
func (a *App) onTempTokenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "y":
		a.busy = true
		return a, a.confirmTempToken()
	case "esc", "n":
		a.resolver.DismissTempToken()
		return a, func() tea.Msg { return authStateMsg(a.resolver.State()) }
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) onVaultTokenKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		token := strings.TrimSpace(a.tokenInput.Value())
		if token == "" {
			return a, nil
		}
		a.busy = true
		a.tokenInput.Reset()
		return a, a.authenticateVaultToken(token)
	case "esc":
		a.tokenInput.Reset()
		return a, nil
	}
	var cmd tea.Cmd
	a.tokenInput, cmd = a.tokenInput.Update(msg)
	return a, cmd
}

func (a *App) onMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The approval prompt captures input until the batch is decided.
	if len(a.convSnap.Approvals) > 0 {
		return a.onApprovalKey(msg)
	}

	if a.form != nil {
		return a.onFormKey(msg)
	}

	if a.budgetForm != nil {
		return a.onBudgetFormKey(msg)
	}

	if a.tab == TabAssistant && a.chatInput.Focused() {
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(a.chatInput.Value())
			if text == "" {
				return a, nil
			}
			a.chatInput.Reset()
			a.busy = true
			return a, a.sendToAgent(text)
		case "esc":
			a.chatInput.Blur()
			return a, nil
		}
		var cmd tea.Cmd
		a.chatInput, cmd = a.chatInput.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "tab", "right":
		a.tab = (a.tab + 1) % tabCount
		return a, a.activateTab()
	case "shift+tab", "left":
		a.tab = (a.tab + tabCount - 1) % tabCount
		return a, a.activateTab()
	case "r":
		a.errText = ""
		return a, a.activateTab()
	case "L":
		a.busy = true
		return a, a.logout()
	case "S":
		if a.authState.Mode == auth.ModeStandalone && a.authState.IsAuthenticated {
			a.busy = true
			return a, a.requestShareLink()
		}
		return a, nil
	}

	switch a.tab {
	case TabTransactions:
		return a.onTransactionsKey(msg)
	case TabBudget:
		if msg.String() == "e" {
			var current []core.Budget
			if a.budgetSummary != nil {
				current = a.budgetSummary.Budgets
			}
			form := newBudgetForm(a.categories, current)
			a.budgetForm = &form
			return a, nil
		}
	case TabAssistant:
		if msg.String() == "i" || msg.String() == "enter" {
			a.chatInput.Focus()
			return a, nil
		}
	}
	return a, nil
}

func (a *App) onTransactionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if a.txCursor > 0 {
			a.txCursor--
		}
	case "down", "j":
		if a.txCursor < len(a.transactions.Items)-1 {
			a.txCursor++
		}
	case "n":
		form := newTxForm(a.categories)
		a.form = &form
	case "e":
		if a.txCursor < len(a.transactions.Items) {
			form := newTxFormEdit(a.transactions.Items[a.txCursor], a.categories)
			a.form = &form
		}
	case "d":
		if a.txCursor < len(a.transactions.Items) {
			code := a.transactions.Items[a.txCursor].Code
			a.busy = true
			return a, a.deleteTransaction(code)
		}
	case "[":
		if a.txPage > 1 {
			a.txPage--
			a.busy = true
			return a, a.loadTransactions(a.txParams())
		}
	case "]":
		if a.txPage < a.transactions.TotalPages {
			a.txPage++
			a.busy = true
			return a, a.loadTransactions(a.txParams())
		}
	}
	return a, nil
}

func (a *App) onFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.form = nil
		return a, nil
	case "tab":
		a.form.nextField()
		return a, nil
	case "enter":
		if a.form.editCode != "" {
			if input := a.form.buildEdit(); input != nil {
				a.busy = true
				return a, a.editTransaction(*input)
			}
			return a, nil
		}
		if input := a.form.build(); input != nil {
			a.busy = true
			return a, a.createTransaction(*input)
		}
		return a, nil
	}
	return a, a.form.update(msg)
}

func (a *App) onBudgetFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.budgetForm = nil
		return a, nil
	case "up", "shift+tab":
		a.budgetForm.move(-1)
		return a, nil
	case "down", "tab":
		a.budgetForm.move(1)
		return a, nil
	case "enter":
		if inputs, ok := a.budgetForm.build(); ok {
			a.busy = true
			return a, a.setBudgets(inputs)
		}
		return a, nil
	}
	return a, a.budgetForm.update(msg)
}

// onApprovalKey collects decisions for the pending batch; the submit is only
// enabled once every call has one.
func (a *App) onApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	approvals := a.convSnap.Approvals
	switch msg.String() {
	case "up", "k":
		if a.approvalCursor > 0 {
			a.approvalCursor--
		}
	case "down", "j":
		if a.approvalCursor < len(approvals)-1 {
			a.approvalCursor++
		}
	case "a", "y":
		if err := a.conv.Decide(approvals[a.approvalCursor].CallID(), agent.DecisionApproved); err == nil {
			a.convSnap = a.conv.Snapshot()
		}
	case "r", "n":
		if err := a.conv.Decide(approvals[a.approvalCursor].CallID(), agent.DecisionRejected); err == nil {
			a.convSnap = a.conv.Snapshot()
		}
	case "enter":
		if len(a.convSnap.Decisions) == len(approvals) {
			a.busy = true
			return a, a.submitDecisions()
		}
	}
	return a, nil
}

func (a *App) activateTab() tea.Cmd {
	a.busy = true
	switch a.tab {
	case TabSummary:
		return a.loadSummary()
	case TabTransactions:
		return tea.Batch(a.loadTransactions(a.txParams()), a.loadCategories())
	case TabBudget:
		now := core.CurrentYearMonth()
		return tea.Batch(a.loadBudgetSummary(now.Year, now.Month), a.loadCategories())
	case TabAssistant:
		a.busy = false
		a.chatInput.Focus()
		return nil
	}
	a.busy = false
	return nil
}

func (a *App) txParams() api.TransactionParams {
	return api.TransactionParams{Page: a.txPage}
}
