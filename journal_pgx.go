package chronicle

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJournal keeps every stream in one table, ordered by an insertion
// sequence. Multi-stream appends share a database transaction
type PostgresJournal struct {
	pool *pgxpool.Pool
}

const (
	pgCreateSchema = `
		CREATE TABLE IF NOT EXISTS chronicle_events (
			pos    BIGSERIAL PRIMARY KEY,
			stream TEXT NOT NULL,
			event  JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS chronicle_events_stream_idx
			ON chronicle_events (stream, pos);`

	pgInsertEvent = `
		INSERT INTO chronicle_events (stream, event) VALUES ($1, $2)`

	pgSelectStream = `
		SELECT event FROM chronicle_events WHERE stream = $1 ORDER BY pos`
)

// NewPostgresJournal connects a pool to the given DSN and verifies the
// connection. Call CreateSchema once before first use
func NewPostgresJournal(
	ctx context.Context, dsn string,
) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresJournal{pool: pool}, nil
}

// CreateSchema creates the events table and index if they do not exist
func (j *PostgresJournal) CreateSchema(ctx context.Context) error {
	_, err := j.pool.Exec(ctx, pgCreateSchema)
	return err
}

func (j *PostgresJournal) Append(ctx context.Context, batches []Batch) error {
	if len(batches) == 0 {
		return nil
	}

	tx, err := j.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, b := range batches {
		for _, ev := range b.Events {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, pgInsertEvent, b.Key, data); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func (j *PostgresJournal) Load(
	ctx context.Context, key string,
) ([]*Event, error) {
	rows, err := j.pool.Query(ctx, pgSelectStream, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		ev := &Event{}
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}
