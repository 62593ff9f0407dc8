// Package cache stores compiled shader source keyed by the SPIR-V input,
// the target and the options that produced it.
//
// Entries live in one SQLite table; source text is brotli-compressed.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"

	// Pure-Go SQLite driver for database/sql.
	_ "modernc.org/sqlite"

	"github.com/wippyai/spirv-cross/errors"
)

const maxSourceSize = 64 * 1024 * 1024

const schema = `CREATE TABLE IF NOT EXISTS outputs (
	key         TEXT PRIMARY KEY,
	target      TEXT NOT NULL,
	entry_point TEXT NOT NULL DEFAULT '',
	source      BLOB NOT NULL,
	size        INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	hits        INTEGER NOT NULL DEFAULT 0
)`

// Entry is one cached translation.
type Entry struct {
	Key    string
	Target string
	// EntryPoint is the cleansed entry point name, if one was requested.
	EntryPoint string
	Source     string
}

// Store is a compile cache backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Key derives a cache key from the target name, the module words and any
// number of option fingerprints. Each part is length-prefixed so parts
// cannot run into each other.
func Key(target string, words []uint32, fingerprints ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	part := func(b []byte) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	part([]byte(target))
	mod := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(mod[4*i:], w)
	}
	part(mod)
	for _, f := range fingerprints {
		part(f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Open opens (or creates) the store at path. An empty path or ":memory:"
// opens a private in-memory store.
func Open(path string) (*Store, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.PhaseCache, errors.KindInvalidInput, err, "create cache directory")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCache, errors.KindInvalidInput, err, "open cache "+dsn)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if dsn != ":memory:" {
		_, _ = db.Exec("PRAGMA journal_mode=WAL")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "create cache schema")
	}
	Logger().Debug("cache opened", zap.String("path", dsn))
	return &Store{db: db, path: dsn}, nil
}

// Path returns the database path, or ":memory:".
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (Entry, bool, error) {
	e := Entry{Key: key}
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT target, entry_point, source FROM outputs WHERE key = ?`, key).
		Scan(&e.Target, &e.EntryPoint, &blob)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "read cache entry")
	}

	r := brotli.NewReader(bytes.NewReader(blob))
	src, err := io.ReadAll(io.LimitReader(r, maxSourceSize+1))
	if err != nil {
		return Entry{}, false, errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "decompress cache entry")
	}
	if len(src) > maxSourceSize {
		return Entry{}, false, errors.InvalidData(errors.PhaseCache, []string{key}, "cached source exceeds maximum size")
	}
	e.Source = string(src)

	if _, err := s.db.ExecContext(ctx, `UPDATE outputs SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		Logger().Warn("cache hit not recorded", zap.String("key", key), zap.Error(err))
	}
	return e, true, nil
}

// Put stores e, replacing any previous entry under e.Key.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if len(e.Source) > maxSourceSize {
		return errors.InvalidInput(errors.PhaseCache, fmt.Sprintf("source of %d bytes exceeds maximum size", len(e.Source)))
	}
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := io.WriteString(w, e.Source); err != nil {
		return errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "compress source")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "compress source")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO outputs (key, target, entry_point, source, size, created_at, hits) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		e.Key, e.Target, e.EntryPoint, buf.Bytes(), len(e.Source), time.Now().Unix())
	if err != nil {
		return errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "write cache entry")
	}
	return nil
}

// Stats summarizes the store.
type Stats struct {
	Entries         int
	SourceBytes     int64
	CompressedBytes int64
	Hits            int64
}

// Stats reports entry counts and sizes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(LENGTH(source)), 0), COALESCE(SUM(hits), 0) FROM outputs`).
		Scan(&st.Entries, &st.SourceBytes, &st.CompressedBytes, &st.Hits)
	if err != nil {
		return Stats{}, errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "read cache stats")
	}
	return st, nil
}

// Purge removes every entry, or only those of target when it is non-empty.
func (s *Store) Purge(ctx context.Context, target string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if target == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM outputs`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM outputs WHERE target = ?`, target)
	}
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCache, errors.KindInvalidData, err, "purge cache")
	}
	return res.RowsAffected()
}
