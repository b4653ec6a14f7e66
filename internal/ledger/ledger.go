// Package ledger is the token ledger surface over the account store: mint
// into the treasury, move between accounts, read balances. Module accounts
// are known by name; external accounts must be valid addresses.
package ledger

import (
	"context"
	"fmt"
	"log"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

// moduleAccounts are exempt from address validation.
var moduleAccounts = map[string]struct{}{
	domain.AccountTreasury:      {},
	domain.AccountRouter:        {},
	domain.AccountStakingEscrow: {},
	domain.AccountVoteEscrow:    {},
	domain.AccountVestingPool:   {},
	domain.AccountForfeitPool:   {},
}

// Ledger wraps the account store with validation and logging.
type Ledger struct {
	accounts storage.AccountStore
	logger   *log.Logger

	// validateAddresses rejects non-address external accounts. Off by
	// default so tests can use plain names.
	validateAddresses bool
}

// New creates a Ledger.
func New(accounts storage.AccountStore, logger *log.Logger, validateAddresses bool) *Ledger {
	if logger == nil {
		logger = log.New(log.Writer(), "[ledger] ", log.LstdFlags)
	}
	return &Ledger{accounts: accounts, logger: logger, validateAddresses: validateAddresses}
}

// Mint credits newly issued tokens to the treasury.
func (l *Ledger) Mint(ctx context.Context, token string, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return storage.ErrInvalidInput
	}
	if err := l.accounts.Credit(ctx, domain.AccountTreasury, token, amount); err != nil {
		return fmt.Errorf("mint to treasury: %w", err)
	}
	l.logger.Printf("minted %s %s to treasury", amount, token)
	return nil
}

// Transfer moves amount between two accounts.
func (l *Ledger) Transfer(ctx context.Context, token, from, to string, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return storage.ErrInvalidInput
	}
	if err := l.checkAccount(from); err != nil {
		return err
	}
	if err := l.checkAccount(to); err != nil {
		return err
	}
	return l.accounts.TransferBatch(ctx, []domain.Transfer{
		{Token: token, From: from, To: to, Amount: amount},
	})
}

// Balance reads an account balance, zero for unknown accounts.
func (l *Ledger) Balance(ctx context.Context, account, token string) (math.Int, error) {
	return l.accounts.Balance(ctx, account, token)
}

func (l *Ledger) checkAccount(account string) error {
	if _, ok := moduleAccounts[account]; ok {
		return nil
	}
	if !l.validateAddresses {
		return nil
	}
	return domain.ValidateAddress(account)
}
