// Package storage persists the transaction collection as a single JSON blob
// in a key-value slot.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"ledger/internal/core"
	"ledger/internal/log"
)

// TransactionStore loads and saves the whole collection under one key.
type TransactionStore struct {
	kv     KeyValue
	key    string
	logger *log.Logger
}

func NewTransactionStore(kv KeyValue, logger *log.Logger) *TransactionStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionStore{
		kv:     kv,
		key:    TransactionsKey,
		logger: logger.WithComponent(log.ComponentStorage),
	}
}

// Load returns the persisted collection. An unreadable blob is removed and
// yields an empty collection; malformed records are dropped one by one.
// Load never fails.
func (s *TransactionStore) Load(ctx context.Context) []core.Transaction {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read transactions",
			log.FieldStorageKey, s.key,
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return []core.Transaction{}
	}
	if !found || raw == "" {
		return []core.Transaction{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		s.logger.WarnContext(ctx, "Discarding unreadable transactions blob",
			log.FieldStorageKey, s.key,
			log.FieldErrorType, log.ErrorTypeCorrupt,
			log.FieldError, err)
		s.discard(ctx)
		return []core.Transaction{}
	}

	out := make([]core.Transaction, 0, len(items))
	for _, item := range items {
		if tx, ok := decodeRecord(item); ok {
			out = append(out, tx)
		}
	}
	if dropped := len(items) - len(out); dropped > 0 {
		s.logger.WarnContext(ctx, "Dropped malformed transactions",
			log.FieldStorageKey, s.key,
			log.FieldErrorType, log.ErrorTypeCorrupt,
			log.FieldCount, dropped)
	}
	return out
}

// Save overwrites the slot with the full collection.
func (s *TransactionStore) Save(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	s.logger.DebugContext(ctx, "Transactions saved",
		log.FieldStorageKey, s.key,
		log.FieldCount, len(txs))
	return nil
}

func (s *TransactionStore) discard(ctx context.Context) {
	if err := s.kv.Remove(ctx, s.key); err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove unreadable blob",
			log.FieldStorageKey, s.key,
			log.FieldError, err)
	}
}

// decodeRecord applies the shape check: name is a string, amount is a number,
// type is income or expense, and id is present and truthy.
func decodeRecord(data json.RawMessage) (core.Transaction, bool) {
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil || rec == nil {
		return core.Transaction{}, false
	}

	name, ok := rec["name"].(string)
	if !ok {
		return core.Transaction{}, false
	}
	amount, ok := rec["amount"].(float64)
	if !ok {
		return core.Transaction{}, false
	}
	typ, _ := rec["type"].(string)
	if !core.TransactionType(typ).Valid() {
		return core.Transaction{}, false
	}
	id, ok := truthyID(rec["id"])
	if !ok {
		return core.Transaction{}, false
	}

	var ts int64
	if v, ok := rec["timestamp"].(float64); ok {
		ts = int64(v)
	}

	return core.Transaction{
		ID:        id,
		Name:      name,
		Amount:    amount,
		Type:      core.TransactionType(typ),
		Timestamp: ts,
	}, true
}

// truthyID accepts any JSON value a script would treat as true and returns its
// string form.
func truthyID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		if id == 0 {
			return "", false
		}
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case bool:
		return "true", id
	case map[string]any, []any:
		b, err := json.Marshal(id)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return "", false
	}
}
