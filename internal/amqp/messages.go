package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/core"
	"ledger/internal/ledger"
)

// ChangeEvent is the message body published for every committed change.
type ChangeEvent struct {
	Kind        ledger.ChangeKind `json:"kind"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Count       int               `json:"count"`
	Income      float64           `json:"income"`
	Expense     float64           `json:"expense"`
	Balance     float64           `json:"balance"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewChangeEvent(c ledger.Change, at time.Time) *ChangeEvent {
	ev := &ChangeEvent{
		Kind:      c.Kind,
		Count:     c.Count,
		Income:    c.Totals.Income,
		Expense:   c.Totals.Expense,
		Balance:   c.Totals.Balance,
		Timestamp: at,
	}
	if c.Transaction.ID != "" {
		tx := c.Transaction
		ev.Transaction = &tx
	}
	return ev
}

func (e *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
