package memory

import (
	"context"
	"sync"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu   sync.RWMutex
	data map[string]math.Int // keyed by account|token
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[string]math.Int),
	}
}

func balanceKey(account, token string) string {
	return account + "|" + token
}

// Balance returns the balance, zero if the account has no row.
func (s *AccountStore) Balance(_ context.Context, account, token string) (math.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.data[balanceKey(account, token)]; ok {
		return b, nil
	}
	return math.ZeroInt(), nil
}

// Credit adds amount to an account balance, creating the row if absent.
func (s *AccountStore) Credit(_ context.Context, account, token string, amount math.Int) error {
	if account == "" || token == "" || amount.IsNil() || amount.IsNegative() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := balanceKey(account, token)
	if b, ok := s.data[key]; ok {
		s.data[key] = b.Add(amount)
	} else {
		s.data[key] = amount
	}
	return nil
}

// TransferBatch applies all transfers atomically under the store mutex.
// Returns ErrInsufficientFunds and leaves every balance unchanged if any
// debit would overdraw its account.
func (s *AccountStore) TransferBatch(_ context.Context, transfers []domain.Transfer) error {
	for _, t := range transfers {
		if t.From == "" || t.To == "" || t.Token == "" || t.Amount.IsNil() || t.Amount.IsNegative() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage against a scratch view so a failing leg leaves nothing applied.
	scratch := make(map[string]math.Int)
	get := func(key string) math.Int {
		if b, ok := scratch[key]; ok {
			return b
		}
		if b, ok := s.data[key]; ok {
			return b
		}
		return math.ZeroInt()
	}

	for _, t := range transfers {
		fromKey := balanceKey(t.From, t.Token)
		toKey := balanceKey(t.To, t.Token)

		from := get(fromKey)
		if from.LT(t.Amount) {
			return storage.ErrInsufficientFunds
		}
		scratch[fromKey] = from.Sub(t.Amount)
		scratch[toKey] = get(toKey).Add(t.Amount)
	}

	for key, b := range scratch {
		s.data[key] = b
	}
	return nil
}

// Verify interface compliance at compile time.
var _ storage.AccountStore = (*AccountStore)(nil)
