package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fingram/internal/core"
)

type budgetRow struct {
	category core.Category
	input    textinput.Model
}

// budgetForm edits the monthly ceilings in bulk, one row per expense
// category. A blank or zero amount removes the category's budget.
type budgetForm struct {
	rows    []budgetRow
	cursor  int
	errText string
}

func newBudgetForm(categories []core.Category, current []core.Budget) budgetForm {
	existing := make(map[string]core.Money, len(current))
	for _, b := range current {
		existing[b.Category.Code] = b.Amount
	}

	var rows []budgetRow
	for _, c := range categories {
		if !c.Kind.Accepts(core.Expense) {
			continue
		}
		in := textinput.New()
		in.Placeholder = "0,00"
		in.CharLimit = 12
		in.Width = 12
		if amount, ok := existing[c.Code]; ok {
			in.SetValue(editableAmount(amount))
		}
		rows = append(rows, budgetRow{category: c, input: in})
	}

	f := budgetForm{rows: rows}
	if len(rows) > 0 {
		f.rows[0].input.Focus()
	}
	return f
}

func (f *budgetForm) move(delta int) {
	if len(f.rows) == 0 {
		return
	}
	f.rows[f.cursor].input.Blur()
	f.cursor = (f.cursor + delta + len(f.rows)) % len(f.rows)
	f.rows[f.cursor].input.Focus()
}

func (f *budgetForm) update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for i := range f.rows {
		var cmd tea.Cmd
		f.rows[i].input, cmd = f.rows[i].input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// build validates every row and assembles the bulk upsert. Blank and zero
// rows are omitted: absence clears the budget.
func (f *budgetForm) build() ([]core.BudgetInput, bool) {
	inputs := make([]core.BudgetInput, 0, len(f.rows))
	for _, row := range f.rows {
		raw := strings.TrimSpace(row.input.Value())
		if raw == "" || raw == "0" || raw == "0,00" || raw == "0.00" {
			continue
		}
		amount, err := core.ParseMoney(raw)
		if err != nil {
			f.errText = "valor inválido para " + row.category.Name
			return nil, false
		}
		inputs = append(inputs, core.BudgetInput{CategoryCode: row.category.Code, Amount: amount})
	}
	f.errText = ""
	return inputs, true
}

func (f *budgetForm) view(st Styles) string {
	var b strings.Builder
	b.WriteString(st.Title.Render("Definir orçamentos") + "\n\n")
	if len(f.rows) == 0 {
		b.WriteString(st.Hint.Render("nenhuma categoria de despesa") + "\n")
	}
	for i, row := range f.rows {
		marker := "  "
		labelStyle := st.Label
		if i == f.cursor {
			marker = "› "
			labelStyle = st.Selected
		}
		b.WriteString(marker + labelStyle.Render(padRight(row.category.Name, 14)) + " " + row.input.View() + "\n")
	}
	if f.errText != "" {
		b.WriteString(st.Error.Render(f.errText) + "\n")
	}
	b.WriteString(st.Hint.Render("↑/↓ categoria  •  enter salvar  •  esc cancelar"))
	return st.PromptBox.Render(b.String())
}
