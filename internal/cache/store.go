// Package cache provides the device-local persistence layer for the client
// engine. Entries are keyed by entity kind and scope; day-scoped entries
// embed the local calendar date in the scope, so cached data naturally
// expires at day rollover.
//
// The store never fails the surrounding operation: write errors are logged
// and swallowed, read errors are treated as misses. Note the day key uses
// the device's local time zone; if the server cuts its day over in another
// zone, cached daily state can briefly disagree with server truth near
// midnight. The server stays authoritative whenever it is reachable.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"uplift/internal/pkg/logger"

	lru "github.com/hashicorp/golang-lru"
	_ "modernc.org/sqlite"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS cache_entries (
		kind TEXT NOT NULL,
		scope TEXT NOT NULL,
		payload BLOB NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, scope));`
	upsertEntryQuery = `INSERT INTO cache_entries (kind, scope, payload, updated_at) VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (kind, scope) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at;`
	getEntryQuery    = `SELECT payload FROM cache_entries WHERE kind = $1 AND scope = $2;`
	deleteEntryQuery = `DELETE FROM cache_entries WHERE kind = $1 AND scope = $2;`
	purgeKindQuery   = `DELETE FROM cache_entries WHERE kind = $1;`
)

const memoryEntries = 256

// Store defines the cache operations the engines depend on. Values are
// marshalled to JSON on the way in and unmarshalled on the way out.
type Store interface {
	Close()

	// Plain entries, keyed by kind and scope.
	Put(kind, scope string, v any)
	Get(kind, scope string, v any) bool
	Delete(kind, scope string)
	Purge(kind string)

	// Day-scoped entries. A value written for one calendar day is never
	// returned for another.
	PutDaily(kind, scope string, day time.Time, v any)
	GetDaily(kind, scope string, day time.Time, v any) bool
	DeleteDaily(kind, scope string, day time.Time)
}

// DayKey formats a moment as the cache's calendar-day component, in the
// device's local time zone.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SQLite implements Store on a single-file sqlite database with a bounded
// in-memory front.
type SQLite struct {
	db  *sql.DB
	mem *lru.Cache
	log *logger.Logger
}

// NewSQLite opens (creating if necessary) the cache database at path.
func NewSQLite(path string, l *logger.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		l.Sugar().Errorf("Failed to open cache database: %s", err)
		return nil, err
	}

	const defaultTimeout = 10 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		l.Sugar().Errorf("Cache database ping failed: %s", err)
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		l.Sugar().Errorf("Failed to set WAL mode: %s", err)
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		l.Sugar().Errorf("Failed to create cache schema: %s", err)
		db.Close()
		return nil, err
	}

	mem, _ := lru.New(memoryEntries)
	return &SQLite{db: db, mem: mem, log: l}, nil
}

// Close closes the underlying database if it is open.
func (s *SQLite) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s *SQLite) Put(kind, scope string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Sugar().Errorf("Failed to marshal cache entry %s/%s: %s", kind, scope, err)
		return
	}

	s.mem.Add(memKey(kind, scope), payload)

	if _, err := s.db.Exec(upsertEntryQuery, kind, scope, payload); err != nil {
		s.log.Sugar().Warnf("Cache write failed for %s/%s: %s", kind, scope, err)
	}
}

func (s *SQLite) Get(kind, scope string, v any) bool {
	if cached, ok := s.mem.Get(memKey(kind, scope)); ok {
		if err := json.Unmarshal(cached.([]byte), v); err == nil {
			return true
		}
		s.mem.Remove(memKey(kind, scope))
	}

	var payload []byte
	err := s.db.QueryRow(getEntryQuery, kind, scope).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		s.log.Sugar().Warnf("Cache read failed for %s/%s: %s", kind, scope, err)
		return false
	}

	if err := json.Unmarshal(payload, v); err != nil {
		s.log.Sugar().Warnf("Corrupt cache entry %s/%s: %s", kind, scope, err)
		return false
	}
	s.mem.Add(memKey(kind, scope), payload)
	return true
}

func (s *SQLite) Delete(kind, scope string) {
	s.mem.Remove(memKey(kind, scope))
	if _, err := s.db.Exec(deleteEntryQuery, kind, scope); err != nil {
		s.log.Sugar().Warnf("Cache delete failed for %s/%s: %s", kind, scope, err)
	}
}

func (s *SQLite) Purge(kind string) {
	s.mem.Purge()
	if _, err := s.db.Exec(purgeKindQuery, kind); err != nil {
		s.log.Sugar().Warnf("Cache purge failed for %s: %s", kind, err)
	}
}

func (s *SQLite) PutDaily(kind, scope string, day time.Time, v any) {
	s.Put(kind, dailyScope(scope, day), v)
}

func (s *SQLite) GetDaily(kind, scope string, day time.Time, v any) bool {
	return s.Get(kind, dailyScope(scope, day), v)
}

func (s *SQLite) DeleteDaily(kind, scope string, day time.Time) {
	s.Delete(kind, dailyScope(scope, day))
}

func dailyScope(scope string, day time.Time) string {
	return scope + "@" + DayKey(day)
}

func memKey(kind, scope string) string {
	return kind + "\x00" + scope
}
