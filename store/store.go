// Package store provides SQLite-backed persistence for compiled sample
// buffers, keyed the same way as the in-memory cache. It exists to warm
// the cache across processes: the engine works fully without it, and the
// in-memory tier stays authoritative. Buffers are immutable rows; the
// store never updates one in place.
package store

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/pulsekit/go-pulse/cache"
	"github.com/pulsekit/go-pulse/sampler"
)

var _ cache.BufferStore = (*Store)(nil)

// Store handles SQLite persistence of compiled buffers.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the buffer database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open buffer store: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate buffer store: %w", err)
	}
	return s, nil
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buffers (
		fingerprint TEXT NOT NULL,
		start REAL NOT NULL,
		rate REAL NOT NULL,
		n INTEGER NOT NULL,
		samples BLOB NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (fingerprint, start, rate, n)
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Load fetches the buffer for key, reporting ok=false on a miss.
func (s *Store) Load(key cache.Key) (*sampler.Buffer, bool, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT samples FROM buffers WHERE fingerprint = ? AND start = ? AND rate = ? AND n = ?`,
		fingerprintText(key), key.Start, key.Rate, key.N,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load buffer %s: %w", key, err)
	}
	samples, err := decodeSamples(blob, key.N)
	if err != nil {
		return nil, false, fmt.Errorf("load buffer %s: %w", key, err)
	}
	return &sampler.Buffer{
		Domain:  sampler.Domain{Start: key.Start, Rate: key.Rate, N: key.N},
		Samples: samples,
	}, true, nil
}

// Save persists a compiled buffer. Because sampling is pure, a row that
// already exists is identical to what we would write; it is left alone.
func (s *Store) Save(key cache.Key, buf *sampler.Buffer) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO buffers (fingerprint, start, rate, n, samples) VALUES (?, ?, ?, ?, ?)`,
		fingerprintText(key), key.Start, key.Rate, key.N, encodeSamples(buf.Samples),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key.String()).Msg("buffer save failed")
		return fmt.Errorf("save buffer %s: %w", key, err)
	}
	return nil
}

// Prune deletes all persisted buffers.
func (s *Store) Prune() error {
	_, err := s.db.Exec(`DELETE FROM buffers`)
	return err
}

// Count returns the number of persisted buffers.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM buffers`).Scan(&n)
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func fingerprintText(key cache.Key) string {
	return fmt.Sprintf("%016x", key.Fingerprint)
}

// encodeSamples packs float64 samples as little-endian bytes.
func encodeSamples(samples []float64) []byte {
	buf := make([]byte, 8*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeSamples(blob []byte, n int) ([]float64, error) {
	if len(blob) != 8*n {
		return nil, fmt.Errorf("sample blob is %d bytes, want %d", len(blob), 8*n)
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return samples, nil
}
