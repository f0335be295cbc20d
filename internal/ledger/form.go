package ledger

import (
	"fmt"
	"math"
	"strings"

	"ledger/internal/core"
	"ledger/internal/render"
)

// User-facing messages.
const (
	MsgEmptyName     = "Please enter a transaction name."
	MsgInvalidAmount = "Please enter a valid amount."
	MsgZeroAmount    = "Amount must be non-zero."
	MsgSaveFailed    = "Warning: cannot save data locally."

	PromptDelete = "Delete this transaction?"
	PromptClear  = "Clear all transactions?"
)

// Form is the raw input of the entry form.
type Form struct {
	Name   string
	Amount string
	Type   string
}

// ValidationError is an input error shown inline next to Field.
type ValidationError struct {
	Field   render.Field
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// parse validates the form in order, stopping at the first failure, and
// returns a transaction without id or timestamp. The amount is stored as its
// absolute value.
func (f Form) parse() (core.Transaction, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return core.Transaction{}, &ValidationError{Field: render.FieldName, Message: MsgEmptyName, Err: core.ErrEmptyName}
	}

	amount, ok := core.ParseAmount(f.Amount)
	if !ok || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return core.Transaction{}, &ValidationError{Field: render.FieldAmount, Message: MsgInvalidAmount, Err: core.ErrInvalidAmount}
	}
	amount = math.Abs(amount)
	if amount == 0 {
		return core.Transaction{}, &ValidationError{Field: render.FieldAmount, Message: MsgZeroAmount, Err: core.ErrZeroAmount}
	}

	return core.Transaction{
		Name:   name,
		Amount: amount,
		Type:   core.ParseTransactionType(f.Type),
	}, nil
}
