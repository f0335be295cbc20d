package core

// Totals is the running summary over a collection of transactions.
type Totals struct {
	Income  float64
	Expense float64
	Balance float64
}

// CalculateTotals sums incomes and expenses in a single pass.
// Any transaction that is not an income counts as an expense.
func CalculateTotals(items []Transaction) Totals {
	var t Totals
	for _, it := range items {
		if it.Type == Income {
			t.Income += it.Amount
		} else {
			t.Expense += it.Amount
		}
	}
	t.Balance = t.Income - t.Expense
	return t
}
