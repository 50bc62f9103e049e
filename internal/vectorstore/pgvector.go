package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    document   TEXT NOT NULL,
    embedding  vector NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
`

// Postgres is a Store backed by the pgvector extension.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and prepares the schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	// The extension must exist before connections can register its types.
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("create vector extension: %w", err)
	}
	conn.Close(ctx)

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.MaxConns = 4
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init vector schema: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Has(ctx context.Context, collection, id string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM embeddings WHERE collection = $1 AND id = $2)`,
		collection, id,
	).Scan(&exists)
	return exists, err
}

func (p *Postgres) Add(ctx context.Context, collection string, rec Record) error {
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("record %q has no embedding", rec.ID)
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO embeddings (collection, id, document, embedding) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, id) DO NOTHING`,
		collection, rec.ID, rec.Document, pgvector.NewVector(rec.Embedding),
	)
	return err
}

func (p *Postgres) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE collection = $1`, collection,
	).Scan(&count)
	return count, err
}

func (p *Postgres) Query(ctx context.Context, collection string, vector []float32, n int) ([]Match, error) {
	if n <= 0 {
		return []Match{}, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, document, power(embedding <-> $2, 2) AS distance
		 FROM embeddings WHERE collection = $1
		 ORDER BY embedding <-> $2
		 LIMIT $3`,
		collection, pgvector.NewVector(vector), n,
	)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Match, error) {
		var m Match
		err := row.Scan(&m.ID, &m.Document, &m.Distance)
		return m, err
	})
}
