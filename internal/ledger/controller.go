// Package ledger holds the application state and the user actions that
// mutate it: add, delete, clear all and bootstrap.
//
// A Controller is single-threaded by contract. Every action runs to
// completion, persists the full collection and re-renders the display.
// Callers that serve concurrent users must serialize access themselves.
package ledger

import (
	"context"
	"errors"
	"time"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/render"
)

const day = 24 * time.Hour

// Store persists the whole collection.
type Store interface {
	Load(ctx context.Context) []core.Transaction
	Save(ctx context.Context, txs []core.Transaction) error
}

// State is the in-memory collection in insertion order.
type State struct {
	transactions []core.Transaction
}

// Transactions returns a copy of the collection.
func (s *State) Transactions() []core.Transaction {
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

func (s *State) Len() int {
	return len(s.transactions)
}

func (s *State) Totals() core.Totals {
	return core.CalculateTotals(s.transactions)
}

func (s *State) append(tx core.Transaction) {
	s.transactions = append(s.transactions, tx)
}

func (s *State) remove(id string) (core.Transaction, bool) {
	for i, tx := range s.transactions {
		if tx.ID == id {
			kept := make([]core.Transaction, 0, len(s.transactions)-1)
			kept = append(kept, s.transactions[:i]...)
			kept = append(kept, s.transactions[i+1:]...)
			s.transactions = kept
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (s *State) replace(txs []core.Transaction) {
	s.transactions = txs
}

// Controller wires user actions to the state, the store and the presenter.
type Controller struct {
	state     State
	store     Store
	presenter render.Presenter
	renderer  *render.Renderer
	confirmer Confirmer
	notifier  Notifier
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces NewID.
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

// WithNotifier registers an observer of committed changes.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithLocation sets the time zone used for displayed times.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.renderer = render.NewRenderer(c.presenter, loc) }
}

func New(store Store, presenter render.Presenter, confirmer Confirmer, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		presenter: presenter,
		renderer:  render.NewRenderer(presenter, nil),
		confirmer: confirmer,
		logger:    log.Discard(),
		now:       time.Now,
		newID:     NewID,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentLedger)
	return c
}

// Transactions returns a copy of the collection in insertion order.
func (c *Controller) Transactions() []core.Transaction {
	return c.state.Transactions()
}

// Totals returns the current income, expense and balance.
func (c *Controller) Totals() core.Totals {
	return c.state.Totals()
}

// Bootstrap loads the persisted collection, seeds two examples on first run
// and renders.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.state.replace(c.store.Load(ctx))

	if c.state.Len() == 0 {
		now := c.now()
		c.state.replace([]core.Transaction{
			{ID: c.newID(), Name: "Salary", Amount: 25000, Type: core.Income, Timestamp: now.Add(-2 * day).UnixMilli()},
			{ID: c.newID(), Name: "Coffee", Amount: 50, Type: core.Expense, Timestamp: now.Add(-day).UnixMilli()},
		})
		c.persist(ctx)
		c.notify(ctx, Change{Kind: ChangeSeeded, Count: c.state.Len()})
	}

	c.logger.InfoContext(ctx, "Ledger ready",
		log.FieldOperation, log.OpStartup,
		log.FieldCount, c.state.Len())
	c.render()
}

// Add validates the form and, on success, records a new transaction.
// A *ValidationError is returned when the input is rejected; the collection
// is untouched in that case.
func (c *Controller) Add(ctx context.Context, f Form) (core.Transaction, error) {
	c.presenter.ClearError()

	tx, err := f.parse()
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			c.presenter.ShowError(ve.Message)
			c.presenter.Focus(ve.Field)
		}
		c.logger.DebugContext(ctx, "Transaction rejected",
			log.FieldOperation, log.OpCreate,
			log.FieldErrorType, log.ErrorTypeValidation,
			log.FieldError, err)
		return core.Transaction{}, err
	}

	tx.ID = c.newID()
	tx.Timestamp = c.now().UnixMilli()
	c.state.append(tx)

	c.persist(ctx)
	c.render()
	c.presenter.ResetForm()
	c.presenter.Focus(render.FieldName)

	c.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().
			WithTransaction(tx.ID, tx.Name, string(tx.Type), tx.Amount).
			WithOperation(log.OpCreate).
			ToSlice()...)
	c.notify(ctx, Change{Kind: ChangeAdded, Transaction: tx, Count: 1})
	return tx, nil
}

// Delete removes the transaction with id after confirmation. It reports
// whether a transaction was removed; an unknown id is a no-op.
func (c *Controller) Delete(ctx context.Context, id string) bool {
	if !c.confirmer.Confirm(ctx, PromptDelete) {
		return false
	}

	tx, ok := c.state.remove(id)
	if !ok {
		c.logger.DebugContext(ctx, "Delete of unknown transaction ignored",
			log.FieldOperation, log.OpDelete,
			log.FieldTxID, id)
		return false
	}

	c.persist(ctx)
	c.render()

	c.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTxID, id)
	c.notify(ctx, Change{Kind: ChangeDeleted, Transaction: tx, Count: 1})
	return true
}

// ClearAll empties the collection after confirmation and returns how many
// transactions were removed. An empty collection is left alone without asking.
func (c *Controller) ClearAll(ctx context.Context) int {
	n := c.state.Len()
	if n == 0 {
		return 0
	}
	if !c.confirmer.Confirm(ctx, PromptClear) {
		return 0
	}

	c.state.replace([]core.Transaction{})
	c.persist(ctx)
	c.render()

	c.logger.InfoContext(ctx, "Transactions cleared",
		log.FieldOperation, log.OpClear,
		log.FieldCount, n)
	c.notify(ctx, Change{Kind: ChangeCleared, Count: n})
	return n
}

// persist writes the full collection. A failure is surfaced as a warning and
// the in-memory state stays authoritative.
func (c *Controller) persist(ctx context.Context) {
	if err := c.store.Save(ctx, c.state.transactions); err != nil {
		c.logger.ErrorContext(ctx, "Failed to save transactions",
			log.NewFields().
				WithOperation(log.OpSave).
				WithErrorType(log.ErrorTypeStorage).
				WithError(err).
				ToSlice()...)
		c.presenter.ShowError(MsgSaveFailed)
	}
}

func (c *Controller) render() {
	c.renderer.Render(c.state.transactions)
}

func (c *Controller) notify(ctx context.Context, ch Change) {
	if c.notifier == nil {
		return
	}
	ch.Totals = c.state.Totals()
	if err := c.notifier.Notify(ctx, ch); err != nil {
		c.logger.WarnContext(ctx, "Change notification failed",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithErrorType(log.ErrorTypeNetwork).
				WithError(err).
				ToSlice()...)
	}
}
