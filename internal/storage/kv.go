package storage

import "context"

// TransactionsKey is the slot holding the serialized transaction collection.
const TransactionsKey = "expense_tracker_transactions_v1"

// KeyValue is a string slot store in the spirit of browser local storage.
type KeyValue interface {
	// Get returns the value under key; found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set overwrites the value under key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
