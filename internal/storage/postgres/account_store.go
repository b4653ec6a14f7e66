package postgres

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	"github.com/jackc/pgx/v5"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Balance returns the balance, zero if the account has no row.
func (s *AccountStore) Balance(ctx context.Context, account, token string) (math.Int, error) {
	query := `
		SELECT balance::text FROM account_balances
		WHERE account = $1 AND token = $2
	`

	var raw string
	err := s.pool.QueryRow(ctx, query, account, token).Scan(&raw)
	if isNotFoundError(err) {
		return math.ZeroInt(), nil
	}
	if err != nil {
		return math.Int{}, fmt.Errorf("get balance: %w", err)
	}
	return parseAmount(raw)
}

// Credit adds amount to an account balance, creating the row if absent.
func (s *AccountStore) Credit(ctx context.Context, account, token string, amount math.Int) error {
	if account == "" || token == "" || amount.IsNil() || amount.IsNegative() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO account_balances (account, token, balance)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (account, token)
		DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance
	`

	if _, err := s.pool.Exec(ctx, query, account, token, amount.String()); err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	return nil
}

// TransferBatch applies all transfers inside one transaction. Debited rows
// are locked with SELECT ... FOR UPDATE; any overdraw rolls the whole batch
// back with ErrInsufficientFunds.
func (s *AccountStore) TransferBatch(ctx context.Context, transfers []domain.Transfer) error {
	for _, t := range transfers {
		if t.From == "" || t.To == "" || t.Token == "" || t.Amount.IsNil() || t.Amount.IsNegative() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer batch: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyTransfers(ctx, tx, transfers); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer batch: %w", err)
	}
	return nil
}

// applyTransfers runs the transfer legs inside tx. The routing journal shares
// this with TransferBatch so both paths debit and credit identically.
func applyTransfers(ctx context.Context, tx pgx.Tx, transfers []domain.Transfer) error {
	for _, t := range transfers {
		var raw string
		err := tx.QueryRow(ctx, `
			SELECT balance::text FROM account_balances
			WHERE account = $1 AND token = $2
			FOR UPDATE
		`, t.From, t.Token).Scan(&raw)
		if isNotFoundError(err) {
			return storage.ErrInsufficientFunds
		}
		if err != nil {
			return fmt.Errorf("lock source balance: %w", err)
		}
		balance, err := parseAmount(raw)
		if err != nil {
			return err
		}
		if balance.LT(t.Amount) {
			return storage.ErrInsufficientFunds
		}

		_, err = tx.Exec(ctx, `
			UPDATE account_balances SET balance = balance - $3::numeric
			WHERE account = $1 AND token = $2
		`, t.From, t.Token, t.Amount.String())
		if err != nil {
			return fmt.Errorf("debit source: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO account_balances (account, token, balance)
			VALUES ($1, $2, $3::numeric)
			ON CONFLICT (account, token)
			DO UPDATE SET balance = account_balances.balance + EXCLUDED.balance
		`, t.To, t.Token, t.Amount.String())
		if err != nil {
			return fmt.Errorf("credit destination: %w", err)
		}
	}
	return nil
}
