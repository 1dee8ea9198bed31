package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fingram/internal/agent"
	"fingram/internal/auth"
	"fingram/internal/core"
)

func (a *App) View() (out string) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("recovered from panic", "panic", fmt.Sprintf("%v", r))
			a.panicked = r
			out = a.viewPanic()
		}
	}()

	if a.panicked != nil {
		return a.viewPanic()
	}

	switch a.screen {
	case screenLoading:
		return a.viewLoading()
	case screenTempToken:
		return a.viewTempToken()
	case screenVaultToken:
		return a.viewVaultToken()
	default:
		return a.viewMain()
	}
}

func (a *App) viewPanic() string {
	st := a.styles
	var b strings.Builder
	b.WriteString(st.Error.Render("Algo deu errado.") + "\n\n")
	b.WriteString(st.Value.Render(fmt.Sprintf("%v", a.panicked)) + "\n\n")
	b.WriteString(st.Hint.Render("r tentar novamente  •  q sair"))
	return st.PromptBox.Render(b.String())
}

func (a *App) viewLoading() string {
	return a.spinner.View() + " " + a.styles.Hint.Render("conectando...")
}

// viewTempToken is the explicit consent prompt for a one-time URL token.
func (a *App) viewTempToken() string {
	st := a.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Acesso compartilhado") + "\n\n")
	b.WriteString(st.Value.Render("Um link de acesso foi detectado. Deseja entrar neste cofre?") + "\n")
	b.WriteString(st.Hint.Render("O token é de uso único e só será usado se você confirmar.") + "\n\n")
	b.WriteString(st.Selected.Render("enter") + st.Value.Render(" entrar") + "   ")
	b.WriteString(st.Selected.Render("esc") + st.Value.Render(" descartar"))
	if a.errText != "" {
		b.WriteString("\n\n" + st.Error.Render(a.errText))
	}
	return st.PromptBox.Render(b.String())
}

func (a *App) viewVaultToken() string {
	st := a.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Fingram") + "\n\n")
	b.WriteString(st.Value.Render("Informe o token de acesso do seu cofre:") + "\n")
	b.WriteString(a.tokenInput.View() + "\n")
	if a.busy {
		b.WriteString(a.spinner.View() + " " + st.Hint.Render("autenticando..."))
	} else {
		b.WriteString(st.Hint.Render("enter autenticar"))
	}
	if a.errText != "" {
		b.WriteString("\n" + st.Error.Render(a.errText))
	}
	return st.PromptBox.Render(b.String())
}

func (a *App) viewMain() string {
	st := a.styles
	var b strings.Builder

	b.WriteString(a.viewTabs() + "\n\n")

	if len(a.convSnap.Approvals) > 0 {
		b.WriteString(a.viewApprovals())
		return b.String()
	}

	switch a.tab {
	case TabSummary:
		b.WriteString(a.viewSummary())
	case TabTransactions:
		b.WriteString(a.viewTransactions())
	case TabBudget:
		b.WriteString(a.viewBudget())
	case TabAssistant:
		b.WriteString(a.viewAssistant())
	}

	if a.shareLink != "" {
		b.WriteString("\n" + st.Label.Render("Link de acesso: ") + st.Value.Render(a.shareLink))
	}
	if a.errText != "" {
		b.WriteString("\n" + st.Error.Render(a.errText) + " " + st.Hint.Render("(r para tentar de novo)"))
	}
	b.WriteString("\n" + a.viewFooter())
	return b.String()
}

func (a *App) viewTabs() string {
	parts := make([]string, 0, int(tabCount))
	for t := TabSummary; t < tabCount; t++ {
		style := a.styles.TabIdle
		if t == a.tab {
			style = a.styles.TabActive
		}
		parts = append(parts, style.Render(t.String()))
	}
	row := strings.Join(parts, "  ")
	if a.busy {
		row += "  " + a.spinner.View()
	}
	return row
}

func (a *App) viewSummary() string {
	st := a.styles
	if a.summary == nil {
		return st.Hint.Render("carregando resumo...")
	}
	s := a.summary

	var b strings.Builder
	row := func(label string, value string) {
		b.WriteString(fmt.Sprintf("%s %s\n", st.Label.Render(label), value))
	}
	row("Saldo:      ", st.Value.Render(s.Balance.String()))
	row("Receitas:   ", st.Income.Render(s.TotalIncome.String()))
	row("Despesas:   ", st.Expense.Render(s.TotalSpent.String()))
	row("Orçado:     ", st.Value.Render(fmt.Sprintf("%s (%.1f%%)", s.TotalBudgeted.String(), s.PercentageBudgeted)))

	if len(s.Transactions) > 0 {
		b.WriteString("\n" + st.Label.Render("Últimas transações:") + "\n")
		limit := len(s.Transactions)
		if limit > 5 {
			limit = 5
		}
		for _, tx := range s.Transactions[:limit] {
			b.WriteString("  " + a.renderTxLine(tx, false) + "\n")
		}
	}
	return st.Pane.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) viewTransactions() string {
	st := a.styles
	var b strings.Builder

	if a.form != nil {
		return a.form.view(st)
	}

	if len(a.transactions.Items) == 0 {
		b.WriteString(st.Hint.Render("nenhuma transação") + "\n")
	}
	for i, tx := range a.transactions.Items {
		b.WriteString(a.renderTxLine(tx, i == a.txCursor) + "\n")
	}
	if a.transactions.TotalPages > 1 {
		b.WriteString(st.Hint.Render(fmt.Sprintf("página %d/%d  •  [ anterior  ] próxima", a.transactions.Page, a.transactions.TotalPages)) + "\n")
	}
	b.WriteString(st.Hint.Render("n nova  •  e editar  •  d excluir  •  ↑/↓ navegar"))
	return st.Pane.Render(strings.TrimRight(b.String(), "\n"))
}

func (a *App) renderTxLine(tx core.Transaction, selected bool) string {
	st := a.styles
	amount := st.Income.Render("+ " + tx.Amount.String())
	if tx.Type == core.Expense {
		amount = st.Expense.Render("- " + tx.Amount.String())
	}
	category := ""
	if tx.Category != nil && tx.Category.Name != "" {
		category = st.Label.Render(" [" + tx.Category.Name + "]")
	}
	date := ""
	if !tx.Date.IsZero() {
		date = st.Hint.Render(tx.Date.Format("02/01") + " ")
	}
	line := date + st.Value.Render(tx.Description) + category + " " + amount
	if selected {
		return st.Selected.Render("› ") + line
	}
	return "  " + line
}

func (a *App) viewBudget() string {
	st := a.styles
	if a.budgetForm != nil {
		return a.budgetForm.view(st)
	}
	if a.budgetSummary == nil {
		return st.Hint.Render("carregando orçamento...")
	}
	s := a.budgetSummary

	var b strings.Builder
	b.WriteString(st.Label.Render(fmt.Sprintf("Orçamento %d-%d", s.Year, s.Month)) + "\n\n")
	if len(s.Budgets) == 0 {
		b.WriteString(st.Hint.Render("nenhum orçamento definido"))
	}
	for _, budget := range s.Budgets {
		bar := renderBar(budget.PercentageUsed, 20)
		b.WriteString(fmt.Sprintf("%s %s %s / %s (%.1f%%)\n",
			st.Value.Render(padRight(budget.Category.Name, 14)),
			bar,
			st.Expense.Render(budget.Spent.String()),
			st.Value.Render(budget.Amount.String()),
			budget.PercentageUsed,
		))
	}
	b.WriteString("\n" + st.Hint.Render("e editar orçamentos"))
	return st.Pane.Render(strings.TrimRight(b.String(), "\n"))
}

func renderBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func padRight(s string, width int) string {
	if len([]rune(s)) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len([]rune(s)))
}

func (a *App) viewAssistant() string {
	st := a.styles
	var b strings.Builder

	for _, item := range a.convSnap.History {
		switch {
		case item.Type == agent.TypeMessage && item.Role == agent.RoleUser:
			b.WriteString(st.Selected.Render("você: ") + st.Value.Render(item.Text) + "\n")
		case item.Type == agent.TypeMessage && item.InProgress():
			b.WriteString(st.Hint.Render("assistente está pensando...") + "\n")
		case item.Type == agent.TypeMessage && item.Role == agent.RoleAssistant:
			b.WriteString(st.Income.Render("assistente: ") + st.Value.Render(item.Text) + "\n")
		case item.Type == agent.TypeFunctionCall:
			b.WriteString(st.Hint.Render("⚙ "+item.Name) + "\n")
		}
	}
	if len(a.convSnap.History) == 0 {
		b.WriteString(st.Hint.Render("Converse com o assistente: \"Almoço 20 Reais\"") + "\n")
	}
	b.WriteString("\n" + a.chatInput.View())
	return st.Pane.Render(strings.TrimRight(b.String(), "\n"))
}

// viewApprovals renders the pending tool-approval batch. Submission stays
// disabled until every call has a decision.
func (a *App) viewApprovals() string {
	st := a.styles
	var b strings.Builder
	b.WriteString(st.Title.Render("Aprovação necessária") + "\n")
	b.WriteString(st.Hint.Render("O assistente solicita aprovação para as ações abaixo:") + "\n\n")

	for i, approval := range a.convSnap.Approvals {
		marker := "  "
		if i == a.approvalCursor {
			marker = st.Selected.Render("› ")
		}
		title := approval.ToolName()
		if args, err := approval.ParseTransactionArgs(); err == nil && approval.ToolName() == "addTransaction" {
			tx := args.Transaction
			kind := "despesa"
			if tx.Type == "income" {
				kind = "receita"
			}
			title = fmt.Sprintf("Adicionar %s: %s %s (%s)", kind,
				core.MoneyFromFloat(tx.Amount).String(), tx.Description, tx.CategoryName)
		}
		decision := ""
		switch a.convSnap.Decisions[approval.CallID()] {
		case agent.DecisionApproved:
			decision = st.Income.Render(" ✔ aprovado")
		case agent.DecisionRejected:
			decision = st.Expense.Render(" ✖ rejeitado")
		}
		b.WriteString(marker + st.Value.Render(title) + decision + "\n")
	}

	b.WriteString("\n")
	if len(a.convSnap.Decisions) == len(a.convSnap.Approvals) {
		b.WriteString(st.Hint.Render("↑/↓ escolher  •  a aprovar  •  r rejeitar  •  ") + st.Selected.Render("enter concluir"))
	} else {
		b.WriteString(st.Hint.Render("↑/↓ escolher  •  a aprovar  •  r rejeitar  •  decida todas para concluir"))
	}
	return st.PromptBox.Render(b.String())
}

func (a *App) viewFooter() string {
	st := a.styles
	mode := "standalone"
	if a.env.Embedded() {
		mode = "telegram"
	}
	parts := []string{
		st.Footer.Render("tab alternar"),
		st.Footer.Render("L sair"),
	}
	if a.authState.Mode == auth.ModeStandalone && a.authState.IsAuthenticated {
		parts = append(parts, st.Footer.Render("S compartilhar"))
	}
	parts = append(parts, st.Footer.Render("q fechar"), st.Footer.Render(mode))
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, st.Footer.Render("  •  ")))
}
