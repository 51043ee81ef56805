// Package sqlstore is the SQL-table storage backend: a pooled
// database/sql client with health/stats reporting. sql.Open runs
// once at startup, the pool is configured from Options, and Health
// reports db.Stats().
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// Store persists records in a single Postgres table:
//
//	CREATE TABLE IF NOT EXISTS records (
//	    uri  TEXT PRIMARY KEY,
//	    ts   BIGINT NOT NULL,
//	    data JSONB NOT NULL
//	)
type Store struct {
	db       *sql.DB
	now      func() int64
	registry *schema.Registry
}

// Options configures the connection pool.
type Options struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// Open establishes the pooled connection and verifies it with a ping,
// creating the backing table if it does not already exist.
func Open(ctx context.Context, registry *schema.Registry, opts Options, now func() int64) (*Store, error) {
	if opts.DatabaseURL == "" {
		return nil, apierr.New(apierr.ConfigError, "sqlstore: database url is empty")
	}
	db, err := sql.Open("postgres", opts.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	const createTableSQL = `CREATE TABLE IF NOT EXISTS records (
		uri  TEXT PRIMARY KEY,
		ts   BIGINT NOT NULL,
		data JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: creating records table: %w", err)
	}

	return &Store{db: db, now: now, registry: registry}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Receive(ctx context.Context, u string, value interface{}) store.ReceiveResult {
	return store.Accept(ctx, s.registry, s.now, s.persist, s.exists, u, value)
}

func (s *Store) persist(ctx context.Context, u string, ts int64, encoded interface{}) error {
	raw, err := json.Marshal(encoded)
	if err != nil {
		return err
	}
	const q = `INSERT INTO records (uri, ts, data) VALUES ($1, $2, $3)
		ON CONFLICT (uri) DO UPDATE SET ts = EXCLUDED.ts, data = EXCLUDED.data`
	_, err = s.db.ExecContext(ctx, q, u, ts, raw)
	return err
}

func (s *Store) exists(ctx context.Context, u string) (bool, error) {
	const q = `SELECT 1 FROM records WHERE uri = $1`
	var dummy int
	err := s.db.QueryRowContext(ctx, q, u).Scan(&dummy)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Read(ctx context.Context, u string) store.ReadResult {
	const q = `SELECT ts, data FROM records WHERE uri = $1`
	row := s.db.QueryRowContext(ctx, q, u)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return store.ReadResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}
	}
	if err != nil {
		return store.ReadResult{Success: false, Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	return store.ReadResult{Success: true, Record: store.Decode(rec)}
}

func (s *Store) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	if len(uris) > store.MaxReadMultiURIs {
		return nil, apierr.New(apierr.ValidationFailed, "readMulti accepts at most 50 uris")
	}
	const q = `SELECT uri, ts, data FROM records WHERE uri = ANY($1)`
	rows, err := s.db.QueryContext(ctx, q, pq.Array(uris))
	if err != nil {
		return nil, apierr.Wrap(apierr.BackendUnavailable, err)
	}
	defer rows.Close()

	found := make(map[string]store.Record)
	for rows.Next() {
		var u string
		var ts int64
		var raw []byte
		if err := rows.Scan(&u, &ts, &raw); err != nil {
			return nil, apierr.Wrap(apierr.BackendUnavailable, err)
		}
		var data interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, apierr.Wrap(apierr.BackendUnavailable, err)
		}
		found[u] = store.Record{Ts: ts, Data: data}
	}
	if err := rows.Err(); err != nil {
		return nil, apierr.Wrap(apierr.BackendUnavailable, err)
	}

	out := make([]store.MultiReadResult, 0, len(uris))
	for _, u := range uris {
		if rec, ok := found[u]; ok {
			r := rec
			out = append(out, store.MultiReadResult{URI: u, ReadResult: store.ReadResult{Success: true, Record: store.Decode(&r)}})
			continue
		}
		out = append(out, store.MultiReadResult{URI: u, ReadResult: store.ReadResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}})
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, prefix string, opts store.ListOptions) store.ListResult {
	const q = `SELECT uri, ts, data FROM records WHERE uri = $1 OR uri LIKE $2`
	rows, err := s.db.QueryContext(ctx, q, prefix, prefix+"/%")
	if err != nil {
		return store.ListResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	defer rows.Close()

	dirTs := make(map[string]int64)
	var entries []store.Entry
	for rows.Next() {
		var u string
		var ts int64
		var raw []byte
		if err := rows.Scan(&u, &ts, &raw); err != nil {
			return store.ListResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
		}
		if u == prefix {
			entries = append(entries, store.Entry{URI: u, Type: store.EntryFile, Ts: ts})
			continue
		}
		if !uri.IsDirectory(u, prefix) {
			continue
		}
		rest := strings.TrimPrefix(u, prefix+"/")
		seg := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			seg = rest[:idx]
		}
		childURI := prefix + "/" + seg
		if ts > dirTs[childURI] {
			dirTs[childURI] = ts
		}
	}
	if err := rows.Err(); err != nil {
		return store.ListResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	for childURI, ts := range dirTs {
		entries = append(entries, store.Entry{URI: childURI, Type: store.EntryDirectory, Ts: ts})
	}

	if opts.Pattern != "" {
		filtered := entries[:0:0]
		for _, e := range entries {
			if matched, _ := filepath.Match(opts.Pattern, e.URI); matched {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	sortEntries(entries, opts.SortBy, opts.SortOrder)

	total := len(entries)
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if !opts.LimitSet {
		limit = 50
	} else if limit < 0 {
		limit = 0
	}
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return store.ListResult{
		Data:       entries[start:end],
		Pagination: store.Pagination{Page: page, Limit: limit, Total: total},
	}
}

func (s *Store) Delete(ctx context.Context, u string) store.DeleteResult {
	const q = `DELETE FROM records WHERE uri = $1`
	res, err := s.db.ExecContext(ctx, q, u)
	if err != nil {
		return store.DeleteResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.DeleteResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	if n == 0 {
		return store.DeleteResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}
	}
	return store.DeleteResult{Success: true}
}

func (s *Store) Health(ctx context.Context) store.HealthStatus {
	if err := s.db.PingContext(ctx); err != nil {
		return store.HealthStatus{Status: "down", Message: err.Error()}
	}
	stats := s.db.Stats()
	return store.HealthStatus{
		Status: "ok",
		Details: map[string]interface{}{
			"openConnections": stats.OpenConnections,
			"inUse":           stats.InUse,
			"idle":            stats.Idle,
			"waitCount":       stats.WaitCount,
		},
	}
}

func (s *Store) GetSchema() []string { return s.registry.ProgramKeys() }

func (s *Store) Cleanup(ctx context.Context) {
	s.db.ExecContext(ctx, `DELETE FROM records`)
}

func scanRecord(row *sql.Row) (*store.Record, error) {
	var ts int64
	var raw []byte
	if err := row.Scan(&ts, &raw); err != nil {
		return nil, err
	}
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return &store.Record{Ts: ts, Data: data}, nil
}

func sortEntries(entries []store.Entry, by store.SortBy, order store.SortOrder) {
	less := func(i, j int) bool { return entries[i].URI < entries[j].URI }
	if by == store.SortByTimestamp {
		less = func(i, j int) bool { return entries[i].Ts < entries[j].Ts }
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if order == store.SortDesc {
			return less(j, i)
		}
		return less(i, j)
	})
}
