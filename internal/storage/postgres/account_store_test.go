package postgres

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

func TestAccountStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountStore(pool)
	ctx := context.Background()

	t.Run("balance of unknown account is zero", func(t *testing.T) {
		balance, err := store.Balance(ctx, "nobody", domain.TokenEmission)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("credit accumulates", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, "alice", domain.TokenEmission, math.NewInt(100)))
		require.NoError(t, store.Credit(ctx, "alice", domain.TokenEmission, math.NewInt(50)))

		balance, err := store.Balance(ctx, "alice", domain.TokenEmission)
		require.NoError(t, err)
		assert.True(t, balance.Equal(math.NewInt(150)), "got %s", balance)
	})

	t.Run("handles amounts beyond int64", func(t *testing.T) {
		huge := math.NewIntWithDecimal(5_000_000_000, 18)
		require.NoError(t, store.Credit(ctx, "whale", domain.TokenEmission, huge))

		balance, err := store.Balance(ctx, "whale", domain.TokenEmission)
		require.NoError(t, err)
		assert.True(t, balance.Equal(huge), "got %s", balance)
	})

	t.Run("transfer batch applies atomically", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, "payer", domain.TokenEmission, math.NewInt(100)))

		err := store.TransferBatch(ctx, []domain.Transfer{
			{Token: domain.TokenEmission, From: "payer", To: "a", Amount: math.NewInt(60)},
			{Token: domain.TokenEmission, From: "payer", To: "b", Amount: math.NewInt(40)},
		})
		require.NoError(t, err)

		a, _ := store.Balance(ctx, "a", domain.TokenEmission)
		b, _ := store.Balance(ctx, "b", domain.TokenEmission)
		left, _ := store.Balance(ctx, "payer", domain.TokenEmission)
		assert.True(t, a.Equal(math.NewInt(60)))
		assert.True(t, b.Equal(math.NewInt(40)))
		assert.True(t, left.IsZero())
	})

	t.Run("overdraw rolls the whole batch back", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, "short", domain.TokenEmission, math.NewInt(10)))

		err := store.TransferBatch(ctx, []domain.Transfer{
			{Token: domain.TokenEmission, From: "short", To: "x", Amount: math.NewInt(5)},
			{Token: domain.TokenEmission, From: "short", To: "y", Amount: math.NewInt(6)},
		})
		assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

		// The first leg must not have applied.
		x, _ := store.Balance(ctx, "x", domain.TokenEmission)
		left, _ := store.Balance(ctx, "short", domain.TokenEmission)
		assert.True(t, x.IsZero())
		assert.True(t, left.Equal(math.NewInt(10)), "got %s", left)
	})

	t.Run("tokens are independent", func(t *testing.T) {
		require.NoError(t, store.Credit(ctx, "carol", domain.TokenGov, math.NewInt(7)))

		gov, _ := store.Balance(ctx, "carol", domain.TokenGov)
		emt, _ := store.Balance(ctx, "carol", domain.TokenEmission)
		assert.True(t, gov.Equal(math.NewInt(7)))
		assert.True(t, emt.IsZero())
	})
}
