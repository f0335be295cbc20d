package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	// Transaction is a single recorded income or expense event.
	// Amount is always positive; the sign is implied by Type.
	Transaction struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Amount    float64         `json:"amount"`
		Type      TransactionType `json:"type"`
		Timestamp int64           `json:"timestamp"` // milliseconds since epoch
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrZeroAmount    = errors.New("zero amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrMissingID     = errors.New("missing id")
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType maps a selector value to a type. Anything other than
// "expense" selects income, which is also the form default.
func ParseTransactionType(s string) TransactionType {
	if strings.TrimSpace(s) == string(Expense) {
		return Expense
	}
	return Income
}

// Time returns the creation time.
func (t Transaction) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

func (t Transaction) Validate() error {
	if t.ID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return ErrInvalidAmount
	}
	if t.Amount <= 0 {
		return ErrZeroAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
