// Package snapshot persists script sessions to a SQLite file.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Attribute kinds stored in a Record.
const (
	KindUndefined = "undefined"
	KindNull      = "null"
	KindBool      = "bool"
	KindNumber    = "number"
	KindString    = "string"
	KindObject    = "object"   // Text holds the referenced object's name
	KindTemplate  = "template" // Text holds the template source
)

// Attr is one own attribute in installation order.
type Attr struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Static bool    `json:"static,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
	Number float64 `json:"number,omitempty"`
	Text   string  `json:"text,omitempty"`
}

// GuardRecord is a named guard expression installed on the object.
type GuardRecord struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

// Record is the persisted form of one named object.
type Record struct {
	Name   string        `json:"-"`
	Seq    int           `json:"-"` // creation order
	Parent string        `json:"parent,omitempty"`
	Frozen bool          `json:"frozen,omitempty"`
	Sealed bool          `json:"sealed,omitempty"`
	Attrs  []Attr        `json:"attrs"`
	Guards []GuardRecord `json:"guards,omitempty"`
}

// Store keeps the latest saved session in a single SQLite table.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open creates or opens the snapshot file at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "proteus.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS objects (
		name TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create objects table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Save replaces the stored session with records.
func (s *Store) Save(ctx context.Context, records []Record) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM objects`); err != nil {
		return fmt.Errorf("clear objects: %w", err)
	}
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO objects(name,seq,payload) VALUES(?,?,?) ON CONFLICT(name) DO UPDATE SET seq=excluded.seq, payload=excluded.payload`, rec.Name, rec.Seq, data); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.Name, err)
		}
	}
	return tx.Commit()
}

// Load returns the stored records in creation order.
func (s *Store) Load(ctx context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT name, seq, payload FROM objects ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select objects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var (
			rec     Record
			payload []byte
		)
		if err := rows.Scan(&rec.Name, &rec.Seq, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", rec.Name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
