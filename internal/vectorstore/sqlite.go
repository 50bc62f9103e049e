package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    document   TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, id)
);
`

// SQLite is a Store kept in a local SQLite file. Distances are computed in
// process, which is fine for a personal job list.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the store at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init vector schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Has(ctx context.Context, collection, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM embeddings WHERE collection = ? AND id = ?)`,
		collection, id,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

func (s *SQLite) Add(ctx context.Context, collection string, rec Record) error {
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("record %q has no embedding", rec.ID)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO embeddings (collection, id, document, embedding) VALUES (?, ?, ?, ?)`,
		collection, rec.ID, rec.Document, encodeVector(rec.Embedding),
	)
	return err
}

func (s *SQLite) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE collection = ?`, collection,
	).Scan(&count)
	return count, err
}

func (s *SQLite) Query(ctx context.Context, collection string, vector []float32, n int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document, embedding FROM embeddings WHERE collection = ? ORDER BY rowid`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec  Record
			blob []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Document, &blob); err != nil {
			return nil, err
		}
		if rec.Embedding, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("record %q: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return nearest(records, vector, n)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding of %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}
