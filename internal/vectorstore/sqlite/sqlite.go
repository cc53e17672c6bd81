// Package sqlite stores index artifacts in a single SQLite database file.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE vectors (
	position  INTEGER PRIMARY KEY,
	embedding BLOB NOT NULL
);`

// Storage writes artifacts as SQLite databases.
type Storage struct{}

// NewStorage returns a SQLite artifact codec.
func NewStorage() *Storage { return &Storage{} }

// Name returns the format identifier used in configuration.
func (s *Storage) Name() string { return "sqlite" }

// Save writes a to a fresh database at path, replacing any existing file.
func (s *Storage) Save(path string, a *vectorstore.Artifact) error {
	return vectorstore.WriteAtomic(path, func(tmpPath string) error {
		db, err := sql.Open("sqlite", tmpPath)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %v", domain.ErrIO, tmpPath, err)
		}
		if err := write(db, a); err != nil {
			db.Close()
			return err
		}
		if err := db.Close(); err != nil {
			return fmt.Errorf("%w: closing %s: %v", domain.ErrIO, tmpPath, err)
		}
		return nil
	})
}

func write(db *sql.DB, a *vectorstore.Artifact) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("%w: creating schema: %v", domain.ErrIO, err)
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrIO, err)
	}
	defer tx.Rollback()

	meta := map[string]string{
		"version":     strconv.Itoa(a.Version),
		"metric":      string(a.Metric),
		"dimension":   strconv.Itoa(a.Dimension),
		"model":       a.Model,
		"fingerprint": a.Fingerprint,
		"built_at":    a.BuiltAt.UTC().Format(time.RFC3339Nano),
		"count":       strconv.Itoa(len(a.Vectors)),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO meta(key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("%w: writing meta %s: %v", domain.ErrIO, k, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO vectors(position, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %v", domain.ErrIO, err)
	}
	defer stmt.Close()
	for i, v := range a.Vectors {
		if _, err := stmt.Exec(i, serializeFloat32(v)); err != nil {
			return fmt.Errorf("%w: inserting vector %d: %v", domain.ErrIO, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %v", domain.ErrIO, err)
	}
	return nil
}

// Load reads an artifact from the database at path.
func (s *Storage) Load(path string) (*vectorstore.Artifact, error) {
	// the driver would silently create a missing file
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: opening artifact %s: %v", domain.ErrIO, path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening artifact %s: %v", domain.ErrIO, path, err)
	}
	defer db.Close()

	meta, err := readMeta(db)
	if err != nil {
		return nil, err
	}
	a := &vectorstore.Artifact{
		Metric:      domain.Metric(meta["metric"]),
		Model:       meta["model"],
		Fingerprint: meta["fingerprint"],
	}
	var count int
	for key, dst := range map[string]*int{"version": &a.Version, "dimension": &a.Dimension, "count": &count} {
		n, err := strconv.Atoi(meta[key])
		if err != nil {
			return nil, fmt.Errorf("%w: meta %s: %v", domain.ErrCorruptArtifact, key, err)
		}
		*dst = n
	}
	if ts := meta["built_at"]; ts != "" {
		if a.BuiltAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("%w: meta built_at: %v", domain.ErrCorruptArtifact, err)
		}
	}

	a.Vectors, err = readVectors(db, count)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func readMeta(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading meta: %v", domain.ErrCorruptArtifact, err)
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: scanning meta: %v", domain.ErrCorruptArtifact, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating meta: %v", domain.ErrCorruptArtifact, err)
	}
	return meta, nil
}

func readVectors(db *sql.DB, count int) ([][]float32, error) {
	rows, err := db.Query(`SELECT position, embedding FROM vectors ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: reading vectors: %v", domain.ErrCorruptArtifact, err)
	}
	defer rows.Close()
	vectors := make([][]float32, 0, count)
	for rows.Next() {
		var pos int
		var blob []byte
		if err := rows.Scan(&pos, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning vector: %v", domain.ErrCorruptArtifact, err)
		}
		if pos != len(vectors) {
			return nil, fmt.Errorf("%w: missing vector at position %d", domain.ErrCorruptArtifact, len(vectors))
		}
		v, err := deserializeFloat32(blob)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating vectors: %v", domain.ErrCorruptArtifact, err)
	}
	if len(vectors) != count {
		return nil, fmt.Errorf("%w: found %d vectors, meta says %d", domain.ErrCorruptArtifact, len(vectors), count)
	}
	if count == 0 {
		return nil, nil
	}
	return vectors, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: embedding blob length %d not divisible by 4", domain.ErrCorruptArtifact, len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

var _ vectorstore.Storage = (*Storage)(nil)
