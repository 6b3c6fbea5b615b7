package faces

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// Schema creates the two tables. vectors owns id allocation; AUTOINCREMENT
// keeps ids monotonic across deletions. data references vectors 1:1.
const Schema = `
CREATE TABLE IF NOT EXISTS vectors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	embedding BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	vector_id INTEGER NOT NULL UNIQUE REFERENCES vectors(id),
	payload TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_data_vector_id ON data(vector_id);
`

// SQLiteStore implements MetadataStore on SQLite. Embeddings are stored as
// little-endian float32 blobs alongside the caller-supplied payload text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and applies the
// schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an existing handle. The schema must already be applied.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// InsertVector persists one embedding and returns its new id.
func (s *SQLiteStore) InsertVector(ctx context.Context, embedding []float32) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO vectors (embedding) VALUES (?)`, encodeVector(embedding))
	if err != nil {
		return 0, fmt.Errorf("%w: insert vector: %v", ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: vector id: %v", ErrPersistence, err)
	}
	return id, nil
}

// InsertMetadata persists payload for vectorID. The UNIQUE constraint on
// vector_id rejects a second payload for the same vector.
func (s *SQLiteStore) InsertMetadata(ctx context.Context, vectorID int64, payload string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO data (vector_id, payload) VALUES (?, ?)`, vectorID, payload)
	if err != nil {
		return 0, fmt.Errorf("%w: insert metadata for vector %d: %v", ErrPersistence, vectorID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: metadata id: %v", ErrPersistence, err)
	}
	return id, nil
}

// MetadataByVectorID returns the payload for vectorID, with ok=false when
// no row exists.
func (s *SQLiteStore) MetadataByVectorID(ctx context.Context, vectorID int64) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM data WHERE vector_id = ?`, vectorID).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: metadata for vector %d: %v", ErrPersistence, vectorID, err)
	}
	return payload, true, nil
}

// ForEachVector scans all stored vectors in id order.
func (s *SQLiteStore) ForEachVector(ctx context.Context, fn func(id int64, embedding []float32) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM vectors ORDER BY id`)
	if err != nil {
		return fmt.Errorf("%w: scan vectors: %v", ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fmt.Errorf("%w: scan vector row: %v", ErrPersistence, err)
		}
		embedding, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("%w: decode vector %d: %v", ErrPersistence, id, err)
		}
		if err := fn(id, embedding); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: scan vectors: %v", ErrPersistence, err)
	}
	return nil
}

// CountVectors reports how many vectors are stored.
func (s *SQLiteStore) CountVectors(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count vectors: %v", ErrPersistence, err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector converts an embedding to little-endian float32 bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. It fails on truncated blobs.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob of %d bytes is not a float32 array", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
