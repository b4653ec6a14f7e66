package memory

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"

	"emission-engine/internal/domain"
	"emission-engine/internal/storage"
)

func testRecord(period int) *domain.RoutingRecord {
	return &domain.RoutingRecord{
		Period:        period,
		Total:         math.NewInt(100),
		Debt:          math.NewInt(30),
		LPPairs:       math.NewInt(30),
		StabilityPool: math.NewInt(30),
		Eco:           math.NewInt(10),
		RoutedAtMs:    1704067200000,
	}
}

func TestRoutedPeriodStore_InsertAndGet(t *testing.T) {
	store := NewRoutedPeriodStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord(5)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	r, err := store.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !r.Total.Equal(math.NewInt(100)) {
		t.Errorf("Total mismatch: got %s", r.Total)
	}
}

func TestRoutedPeriodStore_DuplicateKey(t *testing.T) {
	store := NewRoutedPeriodStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRecord(7)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testRecord(7))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRoutedPeriodStore_GetMissing(t *testing.T) {
	store := NewRoutedPeriodStore()

	_, err := store.Get(context.Background(), 99)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRoutedPeriodStore_ListOrdered(t *testing.T) {
	store := NewRoutedPeriodStore()
	ctx := context.Background()

	for _, p := range []int{30, 10, 20} {
		if err := store.Insert(ctx, testRecord(p)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, want := range []int{10, 20, 30} {
		if records[i].Period != want {
			t.Errorf("Record %d: expected period %d, got %d", i, want, records[i].Period)
		}
	}
}
