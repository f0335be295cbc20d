package ledger

import (
	"context"
	"errors"

	"ledger/internal/core"
)

type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeDeleted ChangeKind = "deleted"
	ChangeCleared ChangeKind = "cleared"
	ChangeSeeded  ChangeKind = "seeded"
)

// Change describes a committed mutation of the collection.
type Change struct {
	Kind        ChangeKind
	Transaction core.Transaction // zero for cleared and seeded
	Count       int              // transactions affected
	Totals      core.Totals      // totals after the change
}

// Notifier observes committed changes. Errors are logged and never reach the user.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// Notifiers fans a change out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, c Change) error {
	var errs []error
	for _, n := range ns {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
