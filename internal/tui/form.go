package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fingram/internal/api"
	"fingram/internal/core"
)

const (
	fieldAmount = iota
	fieldDescription
	fieldCategory
	fieldType
	fieldCount
)

// txForm is the inline transaction entry form on the transactions tab. With
// editCode set it edits an existing transaction instead of creating one.
type txForm struct {
	amount      textinput.Model
	description textinput.Model
	categories  []core.Category
	catIdx      int
	txType      core.TransactionType
	focus       int
	editCode    string
	errText     string
}

func newTxForm(categories []core.Category) txForm {
	amount := textinput.New()
	amount.Placeholder = "0,00"
	amount.CharLimit = 12
	amount.Width = 12
	amount.Focus()

	description := textinput.New()
	description.Placeholder = "Descrição"
	description.CharLimit = 200
	description.Width = 32

	return txForm{
		amount:      amount,
		description: description,
		categories:  categories,
		txType:      core.Expense,
	}
}

// newTxFormEdit prefills the form from an existing transaction.
func newTxFormEdit(tx core.Transaction, categories []core.Category) txForm {
	f := newTxForm(categories)
	f.editCode = tx.Code
	f.txType = tx.Type
	f.amount.SetValue(editableAmount(tx.Amount))
	f.description.SetValue(tx.Description)
	if tx.Category != nil {
		for i, c := range f.allowedCategories() {
			if c.ID == tx.Category.ID {
				f.catIdx = i
				break
			}
		}
	}
	return f
}

// editableAmount is the plain input rendering, without the currency symbol
// or thousands separators of Money.String.
func editableAmount(m core.Money) string {
	cents := m.Abs().Cents
	return fmt.Sprintf("%d,%02d", cents/100, cents%100)
}

func (f *txForm) setCategories(categories []core.Category) {
	f.categories = categories
	if f.catIdx >= len(categories) {
		f.catIdx = 0
	}
}

// allowedCategories filters by the selected transaction type.
func (f *txForm) allowedCategories() []core.Category {
	out := make([]core.Category, 0, len(f.categories))
	for _, c := range f.categories {
		if c.Kind.Accepts(f.txType) {
			out = append(out, c)
		}
	}
	return out
}

func (f *txForm) selectedCategory() *core.Category {
	allowed := f.allowedCategories()
	if len(allowed) == 0 {
		return nil
	}
	if f.catIdx >= len(allowed) {
		f.catIdx = 0
	}
	return &allowed[f.catIdx]
}

func (f *txForm) nextField() {
	f.setFocus((f.focus + 1) % fieldCount)
}

func (f *txForm) setFocus(field int) {
	f.focus = field
	f.amount.Blur()
	f.description.Blur()
	switch field {
	case fieldAmount:
		f.amount.Focus()
	case fieldDescription:
		f.description.Focus()
	}
}

func (f *txForm) update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	if key, ok := msg.(tea.KeyMsg); ok {
		switch f.focus {
		case fieldCategory:
			switch key.String() {
			case "left", "h":
				if f.catIdx > 0 {
					f.catIdx--
				}
				return nil
			case "right", "l":
				if f.catIdx < len(f.allowedCategories())-1 {
					f.catIdx++
				}
				return nil
			}
		case fieldType:
			switch key.String() {
			case "left", "right", "h", "l", " ":
				if f.txType == core.Expense {
					f.txType = core.Income
				} else {
					f.txType = core.Expense
				}
				f.catIdx = 0
				return nil
			}
		}
	}

	var cmd tea.Cmd
	f.amount, cmd = f.amount.Update(msg)
	cmds = append(cmds, cmd)
	f.description, cmd = f.description.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

// build validates and assembles the create input. A nil result means the
// form has an error to show.
func (f *txForm) build() *api.CreateTransactionInput {
	amount, err := core.ParseMoney(f.amount.Value())
	if err != nil {
		f.errText = "valor inválido"
		return nil
	}
	description := strings.TrimSpace(f.description.Value())
	if description == "" {
		f.errText = "descrição obrigatória"
		return nil
	}
	input := &api.CreateTransactionInput{
		Amount:      amount,
		Type:        f.txType,
		Description: description,
		Date:        time.Now(),
	}
	if cat := f.selectedCategory(); cat != nil {
		input.CategoryID = cat.ID
	}
	f.errText = ""
	return input
}

// buildEdit validates and assembles the partial update for editCode. All
// mutable fields travel; the backend ignores unchanged values.
func (f *txForm) buildEdit() *api.EditTransactionInput {
	amount, err := core.ParseMoney(f.amount.Value())
	if err != nil {
		f.errText = "valor inválido"
		return nil
	}
	description := strings.TrimSpace(f.description.Value())
	if description == "" {
		f.errText = "descrição obrigatória"
		return nil
	}
	txType := f.txType
	input := &api.EditTransactionInput{
		TransactionCode: f.editCode,
		NewAmount:       &amount,
		NewDescription:  &description,
		NewType:         &txType,
	}
	if cat := f.selectedCategory(); cat != nil {
		id := cat.ID
		input.NewCategory = &id
	}
	f.errText = ""
	return input
}

func (f *txForm) view(st Styles) string {
	var b strings.Builder

	line := func(field int, label, value string) {
		marker := "  "
		labelStyle := st.Label
		if f.focus == field {
			marker = "› "
			labelStyle = st.Selected
		}
		b.WriteString(marker + labelStyle.Render(label) + " " + value + "\n")
	}

	line(fieldAmount, "Valor:", f.amount.View())
	line(fieldDescription, "Descrição:", f.description.View())

	catName := "(nenhuma)"
	if cat := f.selectedCategory(); cat != nil {
		catName = cat.Name
	}
	line(fieldCategory, "Categoria:", st.Value.Render("‹ "+catName+" ›"))

	typeLabel := st.Expense.Render("despesa")
	if f.txType == core.Income {
		typeLabel = st.Income.Render("receita")
	}
	line(fieldType, "Tipo:", typeLabel)

	if f.errText != "" {
		b.WriteString(st.Error.Render(f.errText) + "\n")
	}
	b.WriteString(st.Hint.Render("tab campo  •  enter salvar  •  esc cancelar"))
	return st.PromptBox.Render(b.String())
}
