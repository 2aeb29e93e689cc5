package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS stage_documents (
	project_id TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPool connects to databaseURL and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres keeps documents in the stage_documents table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the documents table when it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate stage_documents: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, projectID string) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT document FROM stage_documents WHERE project_id = $1`, projectID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return data, nil
}

func (p *Postgres) Save(ctx context.Context, projectID string, data []byte) error {
	if err := CheckID(projectID); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO stage_documents (project_id, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (project_id) DO UPDATE
		SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		projectID, data)
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT project_id, octet_length(document::text), updated_at
		FROM stage_documents ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		var size int32
		var updated time.Time
		if err := row.Scan(&e.ProjectID, &size, &updated); err != nil {
			return Entry{}, err
		}
		e.Size = int(size)
		e.UpdatedAt = updated.UTC()
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return entries, nil
}
