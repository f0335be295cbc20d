// Package render turns the transaction collection into display-ready views
// and hands them to a Presenter.
package render

import "html/template"

// Field identifies a form input that can receive focus.
type Field string

const (
	FieldNone   Field = ""
	FieldName   Field = "name"
	FieldAmount Field = "amount"
)

type (
	// TotalsView holds the three formatted summary fields.
	TotalsView struct {
		Balance string
		Income  string // prefixed with "+"
		Expense string // prefixed with "-"
	}

	// RowView is one rendered transaction.
	RowView struct {
		ID     string
		Name   template.HTML // already escaped
		Time   string
		Amount string // signed by type
		Class  string // "income" or "expense"
	}

	// ListView is the rendered transaction list, newest first.
	ListView struct {
		Empty bool
		Rows  []RowView
	}
)

// Presenter is the port between the ledger and whatever displays it.
type Presenter interface {
	RenderTotals(TotalsView)
	RenderList(ListView)
	ShowError(msg string)
	ClearError()
	Focus(Field)
	ResetForm()
}
