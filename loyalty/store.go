// Package loyalty runs loyalty operations against a transaction log store.
package loyalty

import (
	"context"
	"sync"

	"github.com/angzarr-io/pos/loyalty/logic"
)

// Store is the append-only loyalty log. Implementations must keep entries
// in append order per customer and index card codes from CARD_ISSUED
// entries.
type Store interface {
	Append(ctx context.Context, txs ...logic.Transaction) error
	Transactions(ctx context.Context, customerID string) ([]logic.Transaction, error)
	CustomerForCard(ctx context.Context, code string) (string, bool, error)
}

// MemoryStore keeps the log in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	logs  map[string][]logic.Transaction
	cards map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:  make(map[string][]logic.Transaction),
		cards: make(map[string]string),
	}
}

// Append adds entries to their customers' logs.
func (s *MemoryStore) Append(_ context.Context, txs ...logic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		s.logs[tx.CustomerID] = append(s.logs[tx.CustomerID], tx)
		if tx.Type == logic.TxCardIssued {
			s.cards[tx.CardCode] = tx.CustomerID
		}
	}
	return nil
}

// Transactions returns a copy of a customer's log, oldest first.
func (s *MemoryStore) Transactions(_ context.Context, customerID string) ([]logic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]logic.Transaction(nil), s.logs[customerID]...), nil
}

// CustomerForCard resolves the owner of any card ever issued with code.
func (s *MemoryStore) CustomerForCard(_ context.Context, code string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cards[code]
	return id, ok, nil
}
