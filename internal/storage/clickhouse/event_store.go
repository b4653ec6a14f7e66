package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"emission-engine/internal/domain"
	"emission-engine/internal/observability"
	"emission-engine/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert appends one event to the trail.
func (s *EventStore) Insert(ctx context.Context, e *domain.DistributionEvent) error {
	if e == nil || e.Kind == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO distribution_events (
			kind, period, token, account, amount, at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(e.Kind, int32(e.Period), e.Token, e.Account, e.Amount, e.AtMs)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := sendBatch(batch); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// InsertBulk appends multiple events in one batch.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.DistributionEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO distribution_events (
			kind, period, token, account, amount, at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(e.Kind, int32(e.Period), e.Token, e.Account, e.Amount, e.AtMs)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := sendBatch(batch); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// sendBatch flushes a prepared batch, recording latency and errors. Batches
// bypass Conn.Exec, so they carry their own instrumentation.
func sendBatch(batch driver.Batch) error {
	start := time.Now()
	err := batch.Send()
	observability.RecordDBQuery("clickhouse", "insert", time.Since(start).Seconds(), err)
	return err
}

// GetByTimeRange retrieves events within [start, end] ms (inclusive) ordered
// by time ASC.
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DistributionEvent, error) {
	query := `
		SELECT kind, period, token, account, amount, at_ms
		FROM distribution_events
		WHERE at_ms >= ? AND at_ms <= ?
		ORDER BY at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByKind retrieves all events of one kind ordered by time ASC.
func (s *EventStore) GetByKind(ctx context.Context, kind string) ([]*domain.DistributionEvent, error) {
	query := `
		SELECT kind, period, token, account, amount, at_ms
		FROM distribution_events
		WHERE kind = ?
		ORDER BY at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("query by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// chRows abstracts the row iterator for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows chRows) ([]*domain.DistributionEvent, error) {
	var events []*domain.DistributionEvent

	for rows.Next() {
		var e domain.DistributionEvent
		var period int32

		err := rows.Scan(&e.Kind, &period, &e.Token, &e.Account, &e.Amount, &e.AtMs)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Period = int(period)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}
