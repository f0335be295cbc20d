package render

import (
	"html/template"
	"sort"
	"time"

	"ledger/internal/core"
)

// TimeLayout mirrors an en-IN locale date-time string.
const TimeLayout = "2/1/2006, 3:04:05 pm"

// Renderer rebuilds the whole display from the collection on every call.
type Renderer struct {
	presenter Presenter
	loc       *time.Location
}

// NewRenderer returns a renderer writing to p. A nil loc uses time.Local.
func NewRenderer(p Presenter, loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{presenter: p, loc: loc}
}

// Render refreshes the list and then the totals.
func (r *Renderer) Render(txs []core.Transaction) {
	r.RenderTransactionList(txs)
	r.UpdateTotalsDisplay(txs)
}

func (r *Renderer) UpdateTotalsDisplay(txs []core.Transaction) {
	r.presenter.RenderTotals(Totals(core.CalculateTotals(txs)))
}

func (r *Renderer) RenderTransactionList(txs []core.Transaction) {
	r.presenter.RenderList(List(txs, r.loc))
}

// Totals formats a summary: balance unprefixed, income "+", expense "-".
func Totals(t core.Totals) TotalsView {
	return TotalsView{
		Balance: core.FormatCurrency(t.Balance),
		Income:  "+" + core.FormatCurrency(t.Income),
		Expense: "-" + core.FormatCurrency(t.Expense),
	}
}

// List builds the newest-first view of txs without modifying it.
func List(txs []core.Transaction, loc *time.Location) ListView {
	if len(txs) == 0 {
		return ListView{Empty: true}
	}
	if loc == nil {
		loc = time.Local
	}

	sorted := make([]core.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	rows := make([]RowView, 0, len(sorted))
	for _, tx := range sorted {
		rows = append(rows, Row(tx, loc))
	}
	return ListView{Rows: rows}
}

// Row renders a single transaction. Sign and class come from the type only.
func Row(tx core.Transaction, loc *time.Location) RowView {
	sign, class := "+", string(core.Income)
	if tx.Type == core.Expense {
		sign, class = "-", string(core.Expense)
	}
	return RowView{
		ID:     tx.ID,
		Name:   template.HTML(core.EscapeHTML(tx.Name)),
		Time:   tx.Time().In(loc).Format(TimeLayout),
		Amount: sign + core.FormatCurrency(tx.Amount),
		Class:  class,
	}
}
