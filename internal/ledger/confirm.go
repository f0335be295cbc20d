package ledger

import "context"

// Confirmer asks the user to approve a destructive action.
// Returning false aborts the action with no side effects.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a plain function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

type confirmationKey struct{}

// WithConfirmation records in ctx whether the user already approved the
// action carried by this request.
func WithConfirmation(ctx context.Context, confirmed bool) context.Context {
	return context.WithValue(ctx, confirmationKey{}, confirmed)
}

// ContextConfirmer approves only when WithConfirmation(ctx, true) was set.
// It suits surfaces where the prompt is shown before the request is sent.
type ContextConfirmer struct{}

func (ContextConfirmer) Confirm(ctx context.Context, _ string) bool {
	ok, _ := ctx.Value(confirmationKey{}).(bool)
	return ok
}
