package postgres

import (
	"context"
	"testing"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emission-engine/internal/observability"
)

func TestQueryOp(t *testing.T) {
	cases := map[string]string{
		"SELECT balance FROM account_balances": "select",
		"\n\t\tINSERT INTO claimed_leaves":     "insert",
		"update account_balances set":          "update",
		"DELETE FROM routing_roles":            "delete",
		"":                                     "unknown",
	}
	for sql, want := range cases {
		assert.Equal(t, want, queryOp(sql), "sql %q", sql)
	}
}

func TestPoolRecordsQueryMetrics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Credit(ctx, "metrics-check-account", "EMT", math.NewInt(1)))
	_, err := store.Balance(ctx, "metrics-check-account", "EMT")
	require.NoError(t, err)

	// Both the insert and the select must have landed in the histogram.
	series := testutil.CollectAndCount(observability.DefaultMetrics.DBQueryDuration)
	assert.Greater(t, series, 0, "no query latency recorded")
}
