package financas

import (
	"encoding/json"
	"strings"
)

// Category is a fixed transaction category descriptor
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// UnmarshalJSON accepts either a category object or a bare category id
func (c *Category) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*c = Category{}
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		if known, ok := CategoryByID(id); ok {
			*c = known
			return nil
		}
		*c = Category{ID: id, Name: id}
		return nil
	}

	type alias Category
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Category(a)
	return nil
}

// IncomeCategories is the predefined income catalogue
var IncomeCategories = []Category{
	{ID: "salary", Name: "Salário", Icon: "💼", Color: "#2ecc71"},
	{ID: "freelance", Name: "Freelance", Icon: "💻", Color: "#3498db"},
	{ID: "investment", Name: "Investimentos", Icon: "📈", Color: "#9b59b6"},
	{ID: "gift", Name: "Presente", Icon: "🎁", Color: "#e74c3c"},
	{ID: "other_income", Name: "Outros", Icon: "💰", Color: "#95a5a6"},
}

// ExpenseCategories is the predefined expense catalogue
var ExpenseCategories = []Category{
	{ID: "food", Name: "Alimentação", Icon: "🍽️", Color: "#e67e22"},
	{ID: "transport", Name: "Transporte", Icon: "🚗", Color: "#3498db"},
	{ID: "health", Name: "Saúde", Icon: "🏥", Color: "#e74c3c"},
	{ID: "education", Name: "Educação", Icon: "📚", Color: "#9b59b6"},
	{ID: "entertainment", Name: "Lazer", Icon: "🎬", Color: "#f39c12"},
	{ID: "shopping", Name: "Compras", Icon: "🛍️", Color: "#e91e63"},
	{ID: "bills", Name: "Contas", Icon: "📄", Color: "#34495e"},
	{ID: "rent", Name: "Aluguel", Icon: "🏠", Color: "#16a085"},
	{ID: "other_expense", Name: "Outros", Icon: "💸", Color: "#95a5a6"},
}

// CategoryByID looks a category up in both catalogues
func CategoryByID(id string) (Category, bool) {
	for _, c := range IncomeCategories {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range ExpenseCategories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CategoriesFor returns the catalogue for a transaction type
func CategoriesFor(t TransactionType) []Category {
	var src []Category
	switch t {
	case TransactionTypeIncome:
		src = IncomeCategories
	case TransactionTypeExpense:
		src = ExpenseCategories
	}
	out := make([]Category, len(src))
	copy(out, src)
	return out
}
