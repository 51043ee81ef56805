// Package docstore is the document-store backend. It takes a
// DocExecutor — a narrow interface a caller wires to whatever document
// store they actually run — and drives it the same way sqlstore drives
// database/sql: upsert-by-key, prefix scan, delete-by-key.
package docstore

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/schema"
	"github.com/ethdenver2026/uristore/internal/store"
	"github.com/ethdenver2026/uristore/internal/uri"
)

// Doc is one stored document as the executor sees it.
type Doc struct {
	URI  string
	Ts   int64
	Data interface{}
}

// DocExecutor is the seam a concrete document-store client (MongoDB,
// DynamoDB, Firestore, ...) implements. Upsert replaces any existing
// document with the same URI. Scan returns every document whose URI
// equals prefix or lies under it.
type DocExecutor interface {
	Upsert(ctx context.Context, doc Doc) error
	Get(ctx context.Context, uri string) (*Doc, bool, error)
	GetMulti(ctx context.Context, uris []string) ([]Doc, error)
	Scan(ctx context.Context, prefix string) ([]Doc, error)
	Delete(ctx context.Context, uri string) (bool, error)
	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Store adapts a DocExecutor to the store.Backend contract.
type Store struct {
	exec     DocExecutor
	now      func() int64
	registry *schema.Registry
}

// New wraps exec as a Backend validating against registry.
func New(exec DocExecutor, registry *schema.Registry, now func() int64) *Store {
	return &Store{exec: exec, now: now, registry: registry}
}

func (s *Store) Receive(ctx context.Context, u string, value interface{}) store.ReceiveResult {
	return store.Accept(ctx, s.registry, s.now, s.persist, s.exists, u, value)
}

func (s *Store) persist(ctx context.Context, u string, ts int64, encoded interface{}) error {
	return s.exec.Upsert(ctx, Doc{URI: u, Ts: ts, Data: encoded})
}

func (s *Store) exists(ctx context.Context, u string) (bool, error) {
	_, ok, err := s.exec.Get(ctx, u)
	return ok, err
}

func (s *Store) Read(ctx context.Context, u string) store.ReadResult {
	doc, ok, err := s.exec.Get(ctx, u)
	if err != nil {
		return store.ReadResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	if !ok {
		return store.ReadResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}
	}
	return store.ReadResult{Success: true, Record: store.Decode(&store.Record{Ts: doc.Ts, Data: doc.Data})}
}

func (s *Store) ReadMulti(ctx context.Context, uris []string) ([]store.MultiReadResult, error) {
	if len(uris) > store.MaxReadMultiURIs {
		return nil, apierr.New(apierr.ValidationFailed, "readMulti accepts at most 50 uris")
	}
	docs, err := s.exec.GetMulti(ctx, uris)
	if err != nil {
		return nil, apierr.Wrap(apierr.BackendUnavailable, err)
	}
	found := make(map[string]Doc, len(docs))
	for _, d := range docs {
		found[d.URI] = d
	}
	out := make([]store.MultiReadResult, 0, len(uris))
	for _, u := range uris {
		if d, ok := found[u]; ok {
			out = append(out, store.MultiReadResult{URI: u, ReadResult: store.ReadResult{Success: true, Record: store.Decode(&store.Record{Ts: d.Ts, Data: d.Data})}})
			continue
		}
		out = append(out, store.MultiReadResult{URI: u, ReadResult: store.ReadResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}})
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, prefix string, opts store.ListOptions) store.ListResult {
	docs, err := s.exec.Scan(ctx, prefix)
	if err != nil {
		return store.ListResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}

	dirTs := make(map[string]int64)
	var entries []store.Entry
	for _, d := range docs {
		if d.URI == prefix {
			entries = append(entries, store.Entry{URI: d.URI, Type: store.EntryFile, Ts: d.Ts})
			continue
		}
		if !uri.IsDirectory(d.URI, prefix) {
			continue
		}
		rest := strings.TrimPrefix(d.URI, prefix+"/")
		seg := rest
		if idx := strings.Index(rest, "/"); idx >= 0 {
			seg = rest[:idx]
		}
		childURI := prefix + "/" + seg
		if d.Ts > dirTs[childURI] {
			dirTs[childURI] = d.Ts
		}
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

	return store.ListResult{Data: entries[start:end], Pagination: store.Pagination{Page: page, Limit: limit, Total: total}}
}

func (s *Store) Delete(ctx context.Context, u string) store.DeleteResult {
	ok, err := s.exec.Delete(ctx, u)
	if err != nil {
		return store.DeleteResult{Err: apierr.Wrap(apierr.BackendUnavailable, err)}
	}
	if !ok {
		return store.DeleteResult{Success: false, Err: apierr.New(apierr.NotFound, "no record at "+u)}
	}
	return store.DeleteResult{Success: true}
}

func (s *Store) Health(ctx context.Context) store.HealthStatus {
	if err := s.exec.Ping(ctx); err != nil {
		return store.HealthStatus{Status: "down", Message: err.Error()}
	}
	return store.HealthStatus{Status: "ok"}
}

func (s *Store) GetSchema() []string { return s.registry.ProgramKeys() }

func (s *Store) Cleanup(ctx context.Context) {
	s.exec.Reset(ctx)
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
